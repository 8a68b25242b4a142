package identitypool

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// testJWT builds a syntactically valid (but unsigned/unverified) JWT with
// the given claims, for exercising token decode logic. This library never
// checks signatures (spec.md §1 Non-goals), so an empty signature segment
// is sufficient.
func testJWT(claims map[string]any) string {
	header := map[string]string{"alg": "none", "typ": "JWT"}
	headerJSON, _ := json.Marshal(header)
	claimsJSON, _ := json.Marshal(claims)
	return fmt.Sprintf("%s.%s.",
		base64.RawURLEncoding.EncodeToString(headerJSON),
		base64.RawURLEncoding.EncodeToString(claimsJSON),
	)
}

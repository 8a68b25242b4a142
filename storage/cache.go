package storage

import "fmt"

// Cache wraps a Storage with the exact key layout the library persists
// state under: prefix "CognitoIdentityServiceProvider.<clientId>",
// then either the pool-level ".LastAuthUser" key or a ".<username>."
// scoped key (spec.md §6, §5). Keeping the layout in one place means
// every caller (session caching, device trust, user attributes) reads
// and writes identical keys, which matters because Storage is shared
// across every User constructed against the same clientId.
type Cache struct {
	store    Storage
	clientID string
}

// NewCache returns a Cache scoped to store and clientID.
func NewCache(store Storage, clientID string) *Cache {
	return &Cache{store: store, clientID: clientID}
}

func (c *Cache) prefix() string {
	return "CognitoIdentityServiceProvider." + c.clientID
}

func (c *Cache) userPrefix(username string) string {
	return fmt.Sprintf("%s.%s", c.prefix(), username)
}

// LastAuthUser returns the pool-level last-authenticated username.
func (c *Cache) LastAuthUser() (string, bool) {
	return c.store.GetItem(c.prefix() + ".LastAuthUser")
}

// SetLastAuthUser records username as the pool-level last-authenticated user.
func (c *Cache) SetLastAuthUser(username string) {
	c.store.SetItem(c.prefix()+".LastAuthUser", username)
}

// TokenKeys holds the four cached-token-blob values for one username.
type TokenKeys struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ClockDrift   string
}

// Tokens reads the four cached token values for username. ok is true
// only when all four keys are present.
func (c *Cache) Tokens(username string) (TokenKeys, bool) {
	p := c.userPrefix(username)
	idToken, ok1 := c.store.GetItem(p + ".idToken")
	accessToken, ok2 := c.store.GetItem(p + ".accessToken")
	refreshToken, ok3 := c.store.GetItem(p + ".refreshToken")
	clockDrift, ok4 := c.store.GetItem(p + ".clockDrift")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return TokenKeys{}, false
	}
	return TokenKeys{
		IDToken:      idToken,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ClockDrift:   clockDrift,
	}, true
}

// SetTokens writes the four cached token values and records username as
// the pool's last-authenticated user.
func (c *Cache) SetTokens(username string, t TokenKeys) {
	p := c.userPrefix(username)
	c.store.SetItem(p+".idToken", t.IDToken)
	c.store.SetItem(p+".accessToken", t.AccessToken)
	c.store.SetItem(p+".refreshToken", t.RefreshToken)
	c.store.SetItem(p+".clockDrift", t.ClockDrift)
	c.SetLastAuthUser(username)
}

// ClearTokens removes the four cached token values for username, plus
// .LastAuthUser if it currently points at username (spec.md §4.5
// signOut()).
func (c *Cache) ClearTokens(username string) {
	p := c.userPrefix(username)
	c.store.RemoveItem(p + ".idToken")
	c.store.RemoveItem(p + ".accessToken")
	c.store.RemoveItem(p + ".refreshToken")
	c.store.RemoveItem(p + ".clockDrift")
	if last, ok := c.LastAuthUser(); ok && last == username {
		c.store.RemoveItem(c.prefix() + ".LastAuthUser")
	}
}

// DeviceKeys holds the three cached device-trust values for one username.
type DeviceKeys struct {
	DeviceKey      string
	DeviceGroupKey string
	RandomPassword string
}

// Device reads the cached device-trust triple for username. ok is true
// only when all three keys are present.
func (c *Cache) Device(username string) (DeviceKeys, bool) {
	p := c.userPrefix(username)
	deviceKey, ok1 := c.store.GetItem(p + ".deviceKey")
	deviceGroupKey, ok2 := c.store.GetItem(p + ".deviceGroupKey")
	randomPassword, ok3 := c.store.GetItem(p + ".randomPasswordKey")
	if !ok1 || !ok2 || !ok3 {
		return DeviceKeys{}, false
	}
	return DeviceKeys{
		DeviceKey:      deviceKey,
		DeviceGroupKey: deviceGroupKey,
		RandomPassword: randomPassword,
	}, true
}

// SetDevice writes the device-trust triple for username.
func (c *Cache) SetDevice(username string, d DeviceKeys) {
	p := c.userPrefix(username)
	c.store.SetItem(p+".deviceKey", d.DeviceKey)
	c.store.SetItem(p+".deviceGroupKey", d.DeviceGroupKey)
	c.store.SetItem(p+".randomPasswordKey", d.RandomPassword)
}

// ClearDevice removes the cached device-trust triple for username (used
// when the cached device is forgotten).
func (c *Cache) ClearDevice(username string) {
	p := c.userPrefix(username)
	c.store.RemoveItem(p + ".deviceKey")
	c.store.RemoveItem(p + ".deviceGroupKey")
	c.store.RemoveItem(p + ".randomPasswordKey")
}

// Attribute returns the cached value of a single user attribute.
func (c *Cache) Attribute(username, name string) (string, bool) {
	return c.store.GetItem(fmt.Sprintf("%s.userAttributes.%s", c.userPrefix(username), name))
}

// SetAttribute caches a single user attribute value.
func (c *Cache) SetAttribute(username, name, value string) {
	c.store.SetItem(fmt.Sprintf("%s.userAttributes.%s", c.userPrefix(username), name), value)
}

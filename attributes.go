package identitypool

import "context"

// ChangePassword changes the signed-in user's password (spec.md §4.3
// "changePassword"). Requires a valid access token.
func (u *User) ChangePassword(ctx context.Context, oldPassword, newPassword string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken":      session.AccessToken.String(),
			"PreviousPassword": oldPassword,
			"ProposedPassword": newPassword,
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "ChangePassword", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// ForgotPassword initiates the forgot-password flow (spec.md §4.3
// "forgotPassword"). On success the callback's InputVerificationCode is
// invoked with the code delivery details.
func (u *User) ForgotPassword(ctx context.Context, clientMetadata map[string]string, cb *Callbacks) {
	go func() {
		req := map[string]any{
			"ClientId": u.Pool.ClientID,
			"Username": u.Username,
		}
		if len(clientMetadata) > 0 {
			req["ClientMetadata"] = clientMetadata
		}
		if hash := u.Pool.secretHash(u.Username); hash != "" {
			req["SecretHash"] = hash
		}
		var resp struct {
			CodeDeliveryDetails map[string]string `json:"CodeDeliveryDetails"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "ForgotPassword", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		if cb != nil && cb.InputVerificationCode != nil {
			cb.InputVerificationCode(resp.CodeDeliveryDetails)
		} else {
			cb.succeed(nil, false)
		}
	}()
}

// ConfirmPassword completes the forgot-password flow (spec.md §4.3
// "confirmPassword").
func (u *User) ConfirmPassword(ctx context.Context, code, newPassword string, clientMetadata map[string]string, cb *Callbacks) {
	go func() {
		req := map[string]any{
			"ClientId":         u.Pool.ClientID,
			"Username":         u.Username,
			"ConfirmationCode": code,
			"Password":         newPassword,
		}
		if len(clientMetadata) > 0 {
			req["ClientMetadata"] = clientMetadata
		}
		if hash := u.Pool.secretHash(u.Username); hash != "" {
			req["SecretHash"] = hash
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "ConfirmForgotPassword", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(nil, false)
	}()
}

// GetUserAttributes fetches the signed-in user's attributes (spec.md §4.3
// "getUserAttributes").
func (u *User) GetUserAttributes(ctx context.Context, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{"AccessToken": session.AccessToken.String()}
		var resp struct {
			UserAttributes []map[string]string `json:"UserAttributes"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "GetUser", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		for _, attr := range resp.UserAttributes {
			u.cache.SetAttribute(u.Username, attr["Name"], attr["Value"])
		}
		cb.succeed(session, false)
	}()
}

// UpdateAttributes updates the signed-in user's attributes (spec.md §4.3
// "updateAttributes").
func (u *User) UpdateAttributes(ctx context.Context, attrs map[string]string, clientMetadata map[string]string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken":    session.AccessToken.String(),
			"UserAttributes": attributeList(attrs),
		}
		if len(clientMetadata) > 0 {
			req["ClientMetadata"] = clientMetadata
		}
		var resp struct {
			CodeDeliveryDetailsList []map[string]string `json:"CodeDeliveryDetailsList"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "UpdateUserAttributes", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		for name, value := range attrs {
			u.cache.SetAttribute(u.Username, name, value)
		}
		cb.succeed(session, false)
	}()
}

// DeleteAttributes removes the named attributes from the signed-in user
// (spec.md §4.3 "deleteAttributes").
func (u *User) DeleteAttributes(ctx context.Context, names []string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken":        session.AccessToken.String(),
			"UserAttributeNames": names,
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "DeleteUserAttributes", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// VerifyAttribute confirms an attribute change with a verification code
// (spec.md §4.3 "verifyAttribute").
func (u *User) VerifyAttribute(ctx context.Context, attributeName, code string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken":   session.AccessToken.String(),
			"AttributeName": attributeName,
			"Code":          code,
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "VerifyUserAttribute", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// GetAttributeVerificationCode requests a verification code for an
// attribute (spec.md §4.3 "getAttributeVerificationCode").
func (u *User) GetAttributeVerificationCode(ctx context.Context, attributeName string, clientMetadata map[string]string, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken":   session.AccessToken.String(),
			"AttributeName": attributeName,
		}
		if len(clientMetadata) > 0 {
			req["ClientMetadata"] = clientMetadata
		}
		var resp struct {
			CodeDeliveryDetails map[string]string `json:"CodeDeliveryDetails"`
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "GetUserAttributeVerificationCode", req, &resp); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		if cb != nil && cb.InputVerificationCode != nil {
			cb.InputVerificationCode(resp.CodeDeliveryDetails)
		} else {
			cb.succeed(session, false)
		}
	}()
}

// GetMFAOptions issues GetUser for the signed-in user (spec.md §4.3
// "getMFAOptions"). The MFA options in the response are not passed to
// the callback; OnSuccess receives the current session.
func (u *User) GetMFAOptions(ctx context.Context, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{"AccessToken": session.AccessToken.String()}
		if err := u.Pool.dispatcher().Invoke(ctx, "GetUser", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// SetUserMFAPreference sets SMS/TOTP MFA preference (spec.md §4.3
// "setUserMfaPreference").
func (u *User) SetUserMFAPreference(ctx context.Context, smsEnabled, smsPreferred, totpEnabled, totpPreferred bool, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{
			"AccessToken": session.AccessToken.String(),
			"SMSMfaSettings": map[string]bool{
				"Enabled":      smsEnabled,
				"PreferredMfa": smsPreferred,
			},
			"SoftwareTokenMfaSettings": map[string]bool{
				"Enabled":      totpEnabled,
				"PreferredMfa": totpPreferred,
			},
		}
		if err := u.Pool.dispatcher().Invoke(ctx, "SetUserMFAPreference", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		cb.succeed(session, false)
	}()
}

// EnableMFA is a convenience wrapper enabling SMS MFA (spec.md §4.3
// "enableMFA").
func (u *User) EnableMFA(ctx context.Context, cb *Callbacks) {
	u.SetUserMFAPreference(ctx, true, true, false, false, cb)
}

// DisableMFA is a convenience wrapper disabling both MFA methods
// (spec.md §4.3 "disableMFA").
func (u *User) DisableMFA(ctx context.Context, cb *Callbacks) {
	u.SetUserMFAPreference(ctx, false, false, false, false, cb)
}

// DeleteUser permanently deletes the signed-in user's account (spec.md
// §4.3 "deleteUser"). On success the in-memory session and cache are
// cleared, matching SignOut's cleanup.
func (u *User) DeleteUser(ctx context.Context, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{"AccessToken": session.AccessToken.String()}
		if err := u.Pool.dispatcher().Invoke(ctx, "DeleteUser", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		u.SignOut()
		cb.succeed(nil, false)
	}()
}

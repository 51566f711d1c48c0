package models

// Profile is the subset of the Graph /me document the login client shows.
// The relay itself never decodes profiles.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email prefers mail and falls back to the UPN, which Graph fills for
// accounts without a mailbox.
func (p Profile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

package dto

// ConnectAccountRequest links one mailbox to the calling user. OAuth
// providers send tokens, IMAP providers send server credentials.
type ConnectAccountRequest struct {
	Address  string `json:"address" binding:"required,email"`
	Provider string `json:"provider" binding:"required,oneof=gmail imap"`

	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	ImapServer   string `json:"imap_server,omitempty"`
	ImapPort     int    `json:"imap_port,omitempty"`
	ImapPassword string `json:"imap_password,omitempty"`
}

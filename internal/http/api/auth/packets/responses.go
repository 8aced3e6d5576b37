package packets

type TokenResponse struct {
	Token string `json:"token"`
}

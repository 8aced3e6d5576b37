package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const tokenValidity = 6 * time.Hour

// Client talks to the media server's room admin API and mints join
// capabilities signed with the shared API secret.
type Client struct {
	adminURL  string
	clientURL string
	apiKey    string
	apiSecret string
	http      *http.Client
}

var _ RoomService = (*Client)(nil)

func NewClient(adminURL, clientURL, apiKey, apiSecret string) *Client {
	return &Client{
		adminURL:  adminURL,
		clientURL: clientURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) ClientURL() string { return c.clientURL }

// JoinToken signs a short-lived capability embedding the room grant. Hosts
// additionally get admin and recording permissions.
func (c *Client) JoinToken(p TokenParams) (string, error) {
	grant := map[string]any{
		"room":         p.Room,
		"roomJoin":     true,
		"canPublish":   true,
		"canSubscribe": true,
	}
	if p.Role == "host" || p.Role == "coHost" {
		grant["roomAdmin"] = true
		grant["roomRecord"] = true
	}

	metadata, err := json.Marshal(map[string]string{
		"role":       p.Role,
		"username":   p.Username,
		"platformId": p.PlatformID,
	})
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":      c.apiKey,
		"sub":      p.Identity,
		"name":     p.Username,
		"nbf":      now.Unix(),
		"exp":      now.Add(tokenValidity).Unix(),
		"video":    grant,
		"metadata": string(metadata),
	})
	return token.SignedString([]byte(c.apiSecret))
}

// adminToken signs a short-lived credential for room admin calls.
func (c *Client) adminToken(room string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": c.apiKey,
		"exp": time.Now().Add(time.Minute).Unix(),
		"video": map[string]any{
			"room":      room,
			"roomAdmin": true,
		},
	})
	return token.SignedString([]byte(c.apiSecret))
}

func (c *Client) post(ctx context.Context, path string, body any, room string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adminURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	token, err := c.adminToken(room)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Absent rooms/participants are fine: teardown is idempotent.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("media admin %s: status %d: %s", path, resp.StatusCode, msg)
	}
	return nil
}

func (c *Client) DeleteRoom(ctx context.Context, room string) error {
	return c.post(ctx, "/twirp/livekit.RoomService/DeleteRoom",
		map[string]string{"room": room}, room)
}

func (c *Client) RemoveParticipant(ctx context.Context, room, identity string) error {
	return c.post(ctx, "/twirp/livekit.RoomService/RemoveParticipant",
		map[string]string{"room": room, "identity": identity}, room)
}

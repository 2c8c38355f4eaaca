package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/astro-web3/edge-auth-gateway/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

type probe struct {
	name   string
	path   string
	header string
}

type minter struct {
	secret         []byte
	issuer         string
	userIDClaim    string
	rolesClaim     string
	tokenTypeClaim string
}

func (m minter) sign(userID, tokenType string, roles []string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		m.userIDClaim:    userID,
		m.rolesClaim:     roles,
		m.tokenTypeClaim: tokenType,
		"iat":            now.Unix(),
		"exp":            now.Add(ttl).Unix(),
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		log.Fatalf("Failed to sign %s token: %v", tokenType, err)
	}
	return signed
}

func gatewayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// Reads the gateway's own config (./config, APP_ENV, EDGE_AUTH_GATEWAY_*) so
// the minted tokens match what the running gateway expects.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load gateway config: %v", err)
	}

	path := "/v1/orders"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	gatewayAddr := gatewayURL(cfg.Server.Addr)

	m := minter{
		secret:         []byte(cfg.Auth.JWT.Secret),
		issuer:         cfg.Auth.JWT.Issuer,
		userIDClaim:    cfg.Auth.JWT.UserIDClaim,
		rolesClaim:     cfg.Auth.JWT.RolesClaim,
		tokenTypeClaim: cfg.Auth.JWT.TokenTypeClaim,
	}
	accessTTL := time.Duration(cfg.Auth.JWT.AccessTokenValiditySeconds) * time.Second
	refreshTTL := time.Duration(cfg.Auth.JWT.RefreshTokenValiditySeconds) * time.Second

	access := m.sign("smoke-user", "access", []string{"USER", "ADMIN"}, accessTTL)
	refresh := m.sign("smoke-user", "refresh", []string{"USER"}, refreshTTL)
	expired := m.sign("smoke-user", "access", []string{"USER"}, -time.Minute)

	probes := []probe{
		{name: "anonymous", path: path},
		{name: "access token", path: path, header: "Bearer " + access},
		{name: "refresh token", path: path, header: "Bearer " + refresh},
		{name: "expired token", path: path, header: "Bearer " + expired},
		{name: "garbage token", path: path, header: "Bearer not-a-jwt"},
	}
	if len(cfg.Auth.Whitelist) > 0 {
		probes = append(probes, probe{name: "whitelisted", path: cfg.Auth.Whitelist[0], header: "Bearer " + expired})
	}

	client := &http.Client{Timeout: 10 * time.Second}
	for _, p := range probes {
		req, err := http.NewRequest(http.MethodGet, gatewayAddr+p.path, nil)
		if err != nil {
			log.Fatalf("Failed to create request: %v", err)
		}
		if p.header != "" {
			req.Header.Set("Authorization", p.header)
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("Request %q failed: %v", p.name, err)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()

		verdict := "FORWARDED"
		if resp.StatusCode == http.StatusUnauthorized {
			verdict = "REJECTED"
		}
		fmt.Printf("%-20s %-9s status=%d request_id=%s\n", p.name, verdict, resp.StatusCode, resp.Header.Get("X-Request-Id"))
		if len(body) > 0 && verdict == "FORWARDED" {
			fmt.Printf("%-20s upstream body: %s\n", "", strings.TrimSpace(string(body)))
		}
	}
}

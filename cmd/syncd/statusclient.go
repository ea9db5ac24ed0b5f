package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flashnote/syncd/internal/config"
	"github.com/flashnote/syncd/internal/control"
	"github.com/rs/zerolog/log"
)

// controlRequest mints a fresh bearer token from the shared config secret
// and calls the running daemon's control server, mirroring how the daemon
// itself authenticates its own SSE/status surface.
func controlRequest(cfg *config.Config, method, path string) ([]byte, error) {
	token, err := control.IssueToken(cfg.ControlJWTSecret)
	if err != nil {
		return nil, fmt.Errorf("issuing request token: %w", err)
	}

	req, err := http.NewRequest(method, "http://"+cfg.ControlAddr+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling syncd control server at %s: %w", cfg.ControlAddr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("control server returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func printPrettyJSON(body []byte) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(string(pretty))
}

func mustControlRequest(cfg *config.Config, method, path string) []byte {
	body, err := controlRequest(cfg, method, path)
	if err != nil {
		log.Fatal().Err(err).Msg("control request failed")
	}
	return body
}

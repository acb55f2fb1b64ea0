package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultPinataGateway = "https://gateway.pinata.cloud"

// PinataBackend pins model binaries to IPFS through the Pinata HTTP API.
// The stored reference is the content identifier (CID) returned by the pin
// call; the public URL is the configured gateway templated with the CID.
type PinataBackend struct {
	httpClient *http.Client
	apiURL     string
	gatewayURL string
	jwt        string
}

// NewPinataBackendFromEnv initialises a PinataBackend from PINATA_JWT,
// PINATA_API_URL and PINATA_GATEWAY_URL.
func NewPinataBackendFromEnv() (*PinataBackend, error) {
	jwt := strings.TrimSpace(os.Getenv("PINATA_JWT"))
	if jwt == "" {
		return nil, errors.New("storage: PINATA_JWT environment variable is required")
	}

	apiURL := strings.TrimSpace(os.Getenv("PINATA_API_URL"))
	if apiURL == "" {
		apiURL = "https://api.pinata.cloud"
	}
	gateway := strings.TrimSpace(os.Getenv("PINATA_GATEWAY_URL"))
	if gateway == "" {
		gateway = defaultPinataGateway
	}

	return NewPinataBackend(apiURL, gateway, jwt), nil
}

// NewPinataBackend creates a PinataBackend against the given API and gateway
// base URLs.
func NewPinataBackend(apiURL, gatewayURL, jwt string) *PinataBackend {
	return &PinataBackend{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		jwt:        jwt,
	}
}

func (b *PinataBackend) Kind() string { return "pinata" }

type pinataPinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Store uploads the file to the pinFileToIPFS endpoint as HTTPS multipart.
// The response is synchronous; nothing is polled.
func (b *PinataBackend) Store(ctx context.Context, data []byte, originalName, contentType string) (*StoredObject, error) {
	if b == nil {
		return nil, errors.New("storage: pinata backend not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", sanitizeFilename(originalName))
	if err != nil {
		return nil, fmt.Errorf("storage: build pin form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("storage: write pin form: %w", err)
	}

	metadata := map[string]interface{}{"name": sanitizeFilename(originalName)}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("storage: encode pin metadata: %w", err)
	}
	if err := writer.WriteField("pinataMetadata", string(metadataJSON)); err != nil {
		return nil, fmt.Errorf("storage: write pin metadata: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("storage: finish pin form: %w", err)
	}

	endpoint := b.apiURL + "/pinning/pinFileToIPFS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("storage: create pin request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+b.jwt)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: pin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("storage: pin status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var pinned pinataPinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return nil, fmt.Errorf("storage: decode pin response: %w", err)
	}
	if strings.TrimSpace(pinned.IpfsHash) == "" {
		return nil, errors.New("storage: pin response missing IpfsHash")
	}

	return &StoredObject{
		URL:       fmt.Sprintf("%s/ipfs/%s", b.gatewayURL, pinned.IpfsHash),
		Reference: pinned.IpfsHash,
	}, nil
}

// Delete unpins the CID. A CID that is no longer pinned is not an error.
func (b *PinataBackend) Delete(ctx context.Context, reference string) error {
	if b == nil {
		return nil
	}
	cid := strings.TrimSpace(reference)
	if cid == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/pinning/unpin/%s", b.apiURL, url.PathEscape(cid))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("storage: create unpin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.jwt)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage: unpin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("storage: unpin status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}

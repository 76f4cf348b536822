package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PhotoPrism implements Provider against a PhotoPrism instance.
type PhotoPrism struct {
	parsedURL     *url.URL
	token         string
	downloadToken string
	pageSize      int
}

// NewPhotoPrism authenticates against a PhotoPrism instance and returns a
// ready Provider.
func NewPhotoPrism(rawURL, username, password string) (*PhotoPrism, error) {
	parsed, err := url.Parse(rawURL + "/api/v1")
	if err != nil {
		return nil, fmt.Errorf("invalid PhotoPrism URL: %w", err)
	}
	pp := &PhotoPrism{parsedURL: parsed, pageSize: 1000}
	if err := pp.auth(username, password); err != nil {
		return nil, fmt.Errorf("could not authenticate: %w", err)
	}
	return pp, nil
}

// resolveURL builds a full URL from the base API URL and the given path
// segments. A query string in the last segment is split off so JoinPath
// only receives the path portion.
func (pp *PhotoPrism) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return pp.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := pp.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return pp.parsedURL.JoinPath(pathSegments...).String()
}

func (pp *PhotoPrism) auth(username, password string) error {
	inputBody, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("could not marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, pp.resolveURL("sessions"), bytes.NewReader(inputBody))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session request failed with status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		Config      struct {
			DownloadToken string `json:"downloadToken"`
		} `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("could not unmarshal session response: %w", err)
	}

	pp.token = result.AccessToken
	pp.downloadToken = result.Config.DownloadToken
	return nil
}

// Logout deletes the current session.
func (pp *PhotoPrism) Logout() error {
	if pp.token == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, pp.resolveURL("session"), nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+pp.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()
	pp.token = ""
	return nil
}

// photoModel mirrors the subset of the PhotoPrism photo search response the
// pipeline needs. Files are included by the merged search view.
type photoModel struct {
	UID          string  `json:"UID"`
	Type         string  `json:"Type"`
	TakenAt      string  `json:"TakenAt"`
	CameraMake   string  `json:"CameraMake"`
	CameraModel  string  `json:"CameraModel"`
	Lat          float64 `json:"Lat"`
	Lng          float64 `json:"Lng"`
	Width        int     `json:"Width"`
	Height       int     `json:"Height"`
	FileName     string  `json:"FileName"`
	OriginalName string  `json:"OriginalName"`
	Path         string  `json:"Path"`
	Files        []struct {
		Hash    string `json:"Hash"`
		Size    int64  `json:"Size"`
		Primary bool   `json:"Primary"`
	} `json:"Files"`
}

func (p *photoModel) primaryFileHash() string {
	for _, f := range p.Files {
		if f.Primary {
			return f.Hash
		}
	}
	if len(p.Files) > 0 {
		return p.Files[0].Hash
	}
	return ""
}

func (p *photoModel) toAsset() Asset {
	takenAt, _ := time.Parse(time.RFC3339, p.TakenAt)

	var size int64
	for _, f := range p.Files {
		if f.Primary || size == 0 {
			size = f.Size
		}
	}

	a := Asset{
		ID:          p.UID,
		TakenAt:     takenAt,
		CameraMake:  p.CameraMake,
		CameraModel: p.CameraModel,
		SizeBytes:   size,
		Width:       p.Width,
		Height:      p.Height,
		FileName:    p.FileName,
		FolderPath:  p.Path,
	}
	if p.OriginalName != "" && a.FileName == "" {
		a.FileName = p.OriginalName
	}
	if p.Lat != 0 || p.Lng != 0 {
		lat, lng := p.Lat, p.Lng
		a.Lat, a.Lng = &lat, &lng
	}
	return a
}

// EnumerateAll pages through the photo search endpoint until exhausted.
func (pp *PhotoPrism) EnumerateAll(ctx context.Context, opts EnumerateOptions) ([]Asset, error) {
	var assets []Asset
	offset := 0

	for {
		endpoint := fmt.Sprintf("photos?count=%d&offset=%d&merged=true", pp.pageSize, offset)
		if opts.ExcludeVideo {
			endpoint += "&photo=true"
		}
		if !opts.ExcludeTrashed {
			endpoint += "&archived=true"
		}

		page, err := doGetJSON[[]photoModel](ctx, pp, endpoint)
		if err != nil {
			return nil, fmt.Errorf("could not enumerate photos at offset %d: %w", offset, err)
		}

		for i := range *page {
			assets = append(assets, (*page)[i].toAsset())
		}

		if len(*page) < pp.pageSize {
			return assets, nil
		}
		offset += pp.pageSize
	}
}

// ResolveByID fetches a single photo by uid.
func (pp *PhotoPrism) ResolveByID(ctx context.Context, id string) (*Asset, error) {
	photo, err := doGetJSON[photoModel](ctx, pp, "photos/"+id)
	if err != nil {
		return nil, fmt.Errorf("could not resolve photo %s: %w", id, err)
	}
	asset := photo.toAsset()
	return &asset, nil
}

const (
	materializeAttempts = 3
	materializeBackoff  = 2 * time.Second
)

// MaterializeContent downloads the primary file for a photo. Cloud-only
// originals can take a while to pull or fail transiently, so the download
// is retried with a short backoff before giving up.
func (pp *PhotoPrism) MaterializeContent(ctx context.Context, id string) ([]byte, error) {
	photo, err := doGetJSON[photoModel](ctx, pp, "photos/"+id)
	if err != nil {
		return nil, fmt.Errorf("could not get photo details for %s: %w", id, err)
	}
	fileHash := photo.primaryFileHash()
	if fileHash == "" {
		return nil, fmt.Errorf("no file hash for photo %s", id)
	}

	var lastErr error
	for attempt := 0; attempt < materializeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(materializeBackoff):
			}
		}
		data, err := doGetRaw(ctx, pp, fmt.Sprintf("dl/%s?t=%s", fileHash, pp.downloadToken))
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("could not download photo %s after %d attempts: %w", id, materializeAttempts, lastErr)
}

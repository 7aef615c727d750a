// Spotify Web API catalogue access used for card generation and account checks
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/hitx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// DefaultRedirectURI is used when no redirect uri is configured.
	DefaultRedirectURI = "http://127.0.0.1:8080/callback"

	playlistPageSize = 100
)

// Scopes requested on login. Playback control needs the player scopes; the local
// endpoint fetches preview clips and needs nothing beyond catalogue access.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-read-playback-state",
	"user-modify-playback-state",
	"streaming",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// Premium reports whether the account can control playback through the Web API.
func (u SpotifyUser) Premium() bool {
	return u.Product == "premium"
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	PreviewURL  string          `json:"preview_url"`
	IsLocal     bool            `json:"is_local"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist without its items.
type SpotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	Images      []SpotifyImage    `json:"images"`
	URI         string            `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for items that were removed from the catalogue.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is one page of playlist items.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyService reads the Spotify catalogue on behalf of the logged in user.
// Uses [oauth2] for authentication and refreshes the access token transparently.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
	mu             sync.Mutex
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Config returns the OAuth2 configuration, used by the callback server to exchange codes.
func (s *SpotifyService) Config() *oauth2.Config {
	return s.config
}

// SetBaseURL points the service at another API root.
func (s *SpotifyService) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimRight(baseURL, "/")
}

// SetTokenRefreshCallback registers fn to be called whenever a new access token is issued.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// AuthURL returns the authorization URL for user login.
//
// A non-empty verifier adds a PKCE S256 challenge; pass the same verifier to [SpotifyService.Exchange].
func (s *SpotifyService) AuthURL(state, verifier string) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return s.config.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a token and authenticates the service with it.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := s.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	s.SetToken(ctx, token)
	return token, nil
}

// Authenticate sets up the service from stored credentials.
//
// Expects an "access_token" (with optional "refresh_token") or an "auth_code" (with optional "code_verifier").
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.SetToken(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		_, err := s.Exchange(ctx, authCode, credentials["code_verifier"])
		return err
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// SetToken authenticates the service with token.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.httpClient = oauth2.NewClient(ctx, s.TokenSource(ctx))
}

// TokenSource returns a token source that refreshes the stored token and reports
// every new access token to the refresh callback. It is nil before authentication.
func (s *SpotifyService) TokenSource(ctx context.Context) oauth2.TokenSource {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return nil
	}

	return &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, s.token),
		callback: s.onTokenRefresh,
		current:  s.token.AccessToken,
		seeded:   true,
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and calls callback each time the access token changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu      sync.Mutex
	current string
	seeded  bool
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := !r.seeded || token.AccessToken != r.current
	r.current = token.AccessToken
	r.seeded = true
	r.mu.Unlock()

	if changed {
		r.notify(token)
	}
	return token, nil
}

// notify runs the callback, containing any panic so a failing save never breaks playback.
func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	if r.callback == nil {
		return
	}
	defer func() { _ = recover() }()
	r.callback(token)
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	s.mu.Lock()
	authenticated := s.token != nil
	s.mu.Unlock()
	if !authenticated {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify rejected the access token", shared.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// SeveralTracks retrieves multiple tracks by their IDs (up to 50).
func (s *SpotifyService) SeveralTracks(ctx context.Context, trackIDs []string) ([]SpotifyTrack, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrMissingArgument)
	}
	if len(trackIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 track IDs allowed", shared.ErrInvalidArgument)
	}

	endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Tracks, nil
}

// Playlist retrieves a playlist's metadata by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", url.PathEscape(playlistID),
		url.QueryEscape("id,name,description,owner,public,tracks(total),images,uri"))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, endpoint, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// PlaylistTracks retrieves every track of a playlist, following pagination.
//
// Removed tracks and local files are skipped since they cannot be played by id.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]SpotifyTrack, error) {
	var tracks []SpotifyTrack
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), playlistPageSize, offset)

		var page SpotifyPaginatedPlaylistTracks
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" || item.Track.IsLocal {
				continue
			}
			tracks = append(tracks, *item.Track)
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return tracks, nil
}

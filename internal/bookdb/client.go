package bookdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dis-maja/swesrc/internal/version"
)

// Catalog is the set of bookDB queries used by the importer and the UI.
// It is implemented by *Client and can be faked in tests.
type Catalog interface {
	Test(ctx context.Context) (string, error)
	Repositories(ctx context.Context) ([]RepositoryRow, error)
	Repository(ctx context.Context, rin string) ([]RepositoryInfo, error)
	Counties(ctx context.Context) ([]County, error)
	Archives(ctx context.Context, cid int) ([]Archive, error)
	Archive(ctx context.Context, aid int) (ArchiveInfo, error)
	BookTypes(ctx context.Context, aid int) (BookTypes, error)
	Books(ctx context.Context, aid int) ([]Book, error)
	Book(ctx context.Context, bid int) (BookInfo, error)
	BookRefs(ctx context.Context, bid string) ([]BookRef, error)
	SCBArchive(ctx context.Context) (ArchiveInfo, error)
	SCBBookTypes(ctx context.Context) (BookTypes, error)
	SCBBooks(ctx context.Context, cid int) ([]Book, error)
	URL() string
}

var _ Catalog = (*Client)(nil)

const defaultTimeout = 30 * time.Second

// Options configure a Client.
type Options struct {
	Credentials Credentials
	// Timeout bounds each request; zero uses 30s.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing queries; zero disables throttling.
	RequestsPerSecond float64
	UserAgent         string
	Logger            *log.Logger
	// Transport allows injecting a custom round tripper in tests.
	Transport http.RoundTripper
}

// Client talks to a bookDB server.
type Client struct {
	mu         sync.RWMutex
	creds      Credentials
	authHeader string

	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *log.Logger
}

// Result is the classified outcome of a query. Body holds the raw JSON
// payload and is only set when Code is 0.
type Result struct {
	Status string
	Code   int
	Body   json.RawMessage
}

// OK reports whether the query succeeded.
func (r Result) OK() bool { return r.Code == 0 }

// NewClient builds a Client. A missing or malformed URL is not an error
// here; queries report it as an incomplete configuration.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
		logger:    logger,
	}
	c.SetCredentials(opts.Credentials)
	return c
}

// Credentials returns the current credentials.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// URL returns the configured base URL.
func (c *Client) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.URL
}

// Configured reports whether all three credential fields are set.
func (c *Client) Configured() bool {
	return c.Credentials().Configured()
}

// AuthHeader returns the cached Basic authorization header.
func (c *Client) AuthHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authHeader
}

// SetCredentials replaces all credentials and recomputes the auth header.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
	c.authHeader = creds.AuthHeader()
}

// SetURL changes the base URL.
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.URL = url
}

// SetUsername changes the username and recomputes the auth header.
func (c *Client) SetUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.Username = username
	c.authHeader = c.creds.AuthHeader()
}

// SetPassword changes the password and recomputes the auth header.
func (c *Client) SetPassword(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.Password = password
	c.authHeader = c.creds.AuthHeader()
}

// BuildURL returns the full request URL for q.
func (c *Client) BuildURL(q Query) string {
	return c.URL() + q.Encode()
}

// Query issues q and classifies the outcome. Expected failures (missing
// configuration, 401, 404, 500, 503, a non-OK status field) come back as
// a Result with a non-zero Code and a nil error. Any other transport
// failure is returned as a *TransportError and undecodable payloads as a
// *MalformedResponseError.
func (c *Client) Query(ctx context.Context, q Query) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}
	c.mu.RLock()
	creds, auth := c.creds, c.authHeader
	c.mu.RUnlock()

	cmd := q.Command()
	if !creds.Configured() {
		return incomplete(), nil
	}
	reqURL := creds.URL + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil || req.URL.Scheme == "" || req.URL.Host == "" {
		c.logger.Warn("unusable bookdb url", "cmd", cmd, "url", creds.URL)
		return incomplete(), nil
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, &TransportError{Command: cmd, Err: err}
	}

	c.logger.Debug("bookdb query", "cmd", cmd, "url", reqURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &TransportError{Command: cmd, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		return c.failed(cmd, StatusAuthenticationRequired, code), nil
	case code == http.StatusNotFound:
		return c.failed(cmd, StatusUnknownPage, code), nil
	case code == http.StatusInternalServerError || code == http.StatusServiceUnavailable:
		return c.failed(cmd, reasonPhrase(resp), code), nil
	case code < 200 || code >= 300:
		return Result{}, &TransportError{Command: cmd, Code: code, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &TransportError{Command: cmd, Err: fmt.Errorf("read body: %w", err)}
	}
	status, hasStatus, err := payloadStatus(body)
	if err != nil {
		return Result{}, &MalformedResponseError{Command: cmd, Err: err}
	}
	if hasStatus && status != StatusOK {
		return c.failed(cmd, status, CodeFailure), nil
	}
	return Result{Status: status, Code: 0, Body: json.RawMessage(body)}, nil
}

func (c *Client) failed(cmd Command, status string, code int) Result {
	c.logger.Warn("bookdb query failed", "cmd", cmd, "status", status, "code", code)
	return Result{Status: status, Code: code}
}

func incomplete() Result {
	return Result{Status: StatusIncompleteConfiguration, Code: CodeFailure}
}

// reasonPhrase extracts the server's reason phrase from the status line.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

// payloadStatus reports the top-level status field of an object body.
// List bodies are only validated here; the typed queries decode them.
func payloadStatus(body []byte) (string, bool, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !json.Valid(body) {
			return "", false, fmt.Errorf("decode response: invalid JSON")
		}
		return "", false, nil
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	raw, ok := payload["status"]
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	return strings.TrimSpace(string(raw)), true, nil
}

// fetch runs q and turns a non-OK result into a *StatusError.
func (c *Client) fetch(ctx context.Context, q Query) (json.RawMessage, error) {
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &StatusError{Command: q.Command(), Status: res.Status, Code: res.Code}
	}
	return res.Body, nil
}

// Test pings the server and returns its status string.
func (c *Client) Test(ctx context.Context) (string, error) {
	q := NewQuery(CmdTest)
	res, err := c.Query(ctx, q)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return res.Status, &StatusError{Command: CmdTest, Status: res.Status, Code: res.Code}
	}
	return res.Status, nil
}

// Repositories lists every repository known to bookDB.
func (c *Client) Repositories(ctx context.Context) ([]RepositoryRow, error) {
	return queryRows(ctx, c, NewQuery(CmdRepositories), parseRepositoryRow)
}

// Repository returns the info rows (name, address, phone, links) of one
// repository.
func (c *Client) Repository(ctx context.Context, rin string) ([]RepositoryInfo, error) {
	return queryRows(ctx, c, NewQuery(CmdRepositories, Param{Key: "rin", Value: rin}), parseRepositoryInfo)
}

// Counties lists all counties.
func (c *Client) Counties(ctx context.Context) ([]County, error) {
	return queryRows(ctx, c, NewQuery(CmdCounties), parseCounty)
}

// Archives lists the archives of a county.
func (c *Client) Archives(ctx context.Context, cid int) ([]Archive, error) {
	return queryRows(ctx, c, NewQuery(CmdArchives, intParam("cid", cid)), parseArchive)
}

// Archive returns one archive.
func (c *Client) Archive(ctx context.Context, aid int) (ArchiveInfo, error) {
	return queryRow(ctx, c, NewQuery(CmdArchives, intParam("aid", aid)), parseArchiveInfo)
}

// BookTypes returns the book types used by an archive.
func (c *Client) BookTypes(ctx context.Context, aid int) (BookTypes, error) {
	return queryBookTypes(ctx, c, NewQuery(CmdBookTypes, intParam("aid", aid)))
}

// Books lists the books of an archive.
func (c *Client) Books(ctx context.Context, aid int) ([]Book, error) {
	return queryRows(ctx, c, NewQuery(CmdBooks, intParam("aid", aid)), parseBook)
}

// Book returns one book.
func (c *Client) Book(ctx context.Context, bid int) (BookInfo, error) {
	return queryRow(ctx, c, NewQuery(CmdBooks, intParam("bid", bid)), parseBookInfo)
}

// BookRefs lists the NAD references of a book, keyed by its NAD book id.
func (c *Client) BookRefs(ctx context.Context, bid string) ([]BookRef, error) {
	return queryRows(ctx, c, NewQuery(CmdBookRefs, Param{Key: "bid", Value: bid}), parseBookRef)
}

// SCBArchive returns the archive holding the SCB extracts.
func (c *Client) SCBArchive(ctx context.Context) (ArchiveInfo, error) {
	return queryRow(ctx, c, NewQuery(CmdSCBArchive), parseArchiveInfo)
}

// SCBBookTypes returns the SCB book types.
func (c *Client) SCBBookTypes(ctx context.Context) (BookTypes, error) {
	return queryBookTypes(ctx, c, NewQuery(CmdSCBBookTypes))
}

// SCBBooks lists the SCB extract books of a county.
func (c *Client) SCBBooks(ctx context.Context, cid int) ([]Book, error) {
	return queryRows(ctx, c, NewQuery(CmdSCBBooks, intParam("cid", cid)), parseBook)
}

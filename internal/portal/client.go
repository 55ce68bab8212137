// Package portal implements the ArcGIS portal REST operations the cloning
// pipeline depends on: reading items, groups and service definitions from a
// source organization and recreating them in a destination organization.
//
// A Client is bound to exactly one organization and one token. Cloning a
// solution therefore uses two clients: one for the source org and one for the
// destination org.
//
// The portal enforces per-org request limits, so every call passes through a
// shared rate limiter before touching the network. The portal also reports
// most failures with HTTP 200 and an error envelope in the response body;
// the client decodes that envelope and returns it as a *Error, with
// item-missing codes matching ErrNotFound.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gisops/solclone/models"
)

// Client is an authenticated connection to one portal organization.
type Client struct {
	baseURL    string
	token      string
	username   string
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing requests per second. The default is 20 req/s
// with a small burst, which stays under the portal's published limits.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithDebug enables request logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// New creates a client bound to one organization.
// baseURL is the org URL, e.g. https://myorg.maps.arcgis.com.
func New(baseURL, username, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("portal URL is required")
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		username: username,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the organization URL the client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf(format, args...)
	}
}

// rest builds a sharing API URL from a path fragment.
func (c *Client) rest(path string) string {
	return c.baseURL + "/sharing/rest" + path
}

// get performs a GET against the sharing API and decodes the response into
// out. A nil out discards the body.
func (c *Client) get(ctx context.Context, rawURL string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("f", "json")
	if c.token != "" {
		query.Set("token", c.token)
	}

	return c.do(ctx, http.MethodGet, rawURL+"?"+query.Encode(), nil, out)
}

// postForm performs a form-encoded POST against the sharing API.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("f", "json")
	if c.token != "" {
		form.Set("token", c.token)
	}

	return c.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.debugLog("portal: %s %s", method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &Error{Code: 404, Message: "resource not found", Operation: req.URL.Path}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	// The portal wraps failures in a 200 response.
	var envelope struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.Operation = req.URL.Path
		return envelope.Error
	}

	if out == nil {
		return nil
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = raw
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchItem returns the base metadata of an item.
func (c *Client) FetchItem(ctx context.Context, id string) (models.JSONMap, error) {
	var item models.JSONMap
	if err := c.get(ctx, c.rest("/content/items/"+id), nil, &item); err != nil {
		return nil, fmt.Errorf("failed to fetch item %s: %w", id, err)
	}
	return item, nil
}

// FetchItemData returns the item's data section. Not every item type has
// one; absence surfaces as an error matching ErrNotFound and is an expected
// condition for callers.
func (c *Client) FetchItemData(ctx context.Context, id string) (json.RawMessage, error) {
	var data json.RawMessage
	if err := c.get(ctx, c.rest("/content/items/"+id+"/data"), nil, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch data for item %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("item %s has no data section: %w", id, ErrNotFound)
	}
	return data, nil
}

// FetchItemResources returns the item's resource descriptors.
func (c *Client) FetchItemResources(ctx context.Context, id string) (*models.ResourceList, error) {
	var list models.ResourceList
	if err := c.get(ctx, c.rest("/content/items/"+id+"/resources"), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch resources for item %s: %w", id, err)
	}
	return &list, nil
}

// FetchGroup returns the base metadata of a group.
func (c *Client) FetchGroup(ctx context.Context, id string) (models.JSONMap, error) {
	var group models.JSONMap
	if err := c.get(ctx, c.rest("/community/groups/"+id), nil, &group); err != nil {
		return nil, fmt.Errorf("failed to fetch group %s: %w", id, err)
	}
	return group, nil
}

// FetchGroupContents returns one page of a group's member items.
func (c *Client) FetchGroupContents(ctx context.Context, id string, page models.PageRequest) (*models.GroupContentPage, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(page.Start))
	query.Set("num", strconv.Itoa(page.Num))

	var out models.GroupContentPage
	if err := c.get(ctx, c.rest("/content/groups/"+id), query, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch contents of group %s: %w", id, err)
	}
	return &out, nil
}

// CreateItem creates an item in the destination organization. folderID may
// be empty to create at the user root. It returns the new item id.
func (c *Client) CreateItem(ctx context.Context, item models.JSONMap, data []byte, folderID string) (string, error) {
	form := url.Values{}
	for k, v := range item {
		form.Set(k, formValue(v))
	}
	if len(data) > 0 {
		form.Set("text", string(data))
	}

	path := "/content/users/" + c.username
	if folderID != "" {
		path += "/" + folderID
	}

	var out struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.postForm(ctx, c.rest(path+"/addItem"), form, &out); err != nil {
		return "", fmt.Errorf("failed to create item: %w", err)
	}
	if !out.Success && out.ID == "" {
		return "", fmt.Errorf("item creation was not successful")
	}
	return out.ID, nil
}

// UpdateItem updates fields of an existing destination item.
func (c *Client) UpdateItem(ctx context.Context, id string, fields models.JSONMap) error {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, formValue(v))
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := c.postForm(ctx, c.rest("/content/users/"+c.username+"/items/"+id+"/update"), form, &out); err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	if !out.Success {
		return fmt.Errorf("update of item %s was not successful", id)
	}
	return nil
}

// CreateFolder creates a destination content folder and returns its id.
func (c *Client) CreateFolder(ctx context.Context, title string) (string, error) {
	form := url.Values{}
	form.Set("title", title)

	var out struct {
		Success bool `json:"success"`
		Folder  struct {
			ID string `json:"id"`
		} `json:"folder"`
	}
	if err := c.postForm(ctx, c.rest("/content/users/"+c.username+"/createFolder"), form, &out); err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", title, err)
	}
	if out.Folder.ID == "" {
		return "", fmt.Errorf("folder creation returned no id")
	}
	return out.Folder.ID, nil
}

// CreateGroup creates a destination group and returns its id.
func (c *Client) CreateGroup(ctx context.Context, group models.JSONMap) (string, error) {
	form := url.Values{}
	for k, v := range group {
		form.Set(k, formValue(v))
	}

	var out struct {
		Success bool `json:"success"`
		Group   struct {
			ID string `json:"id"`
		} `json:"group"`
	}
	if err := c.postForm(ctx, c.rest("/community/createGroup"), form, &out); err != nil {
		return "", fmt.Errorf("failed to create group: %w", err)
	}
	if out.Group.ID == "" {
		return "", fmt.Errorf("group creation returned no id")
	}
	return out.Group.ID, nil
}

// ShareItemWithGroup shares a destination item into a destination group.
func (c *Client) ShareItemWithGroup(ctx context.Context, itemID, groupID string) error {
	form := url.Values{}
	form.Set("groups", groupID)

	var out struct {
		NotSharedWith []string `json:"notSharedWith"`
	}
	if err := c.postForm(ctx, c.rest("/content/items/"+itemID+"/share"), form, &out); err != nil {
		return fmt.Errorf("failed to share item %s with group %s: %w", itemID, groupID, err)
	}
	if len(out.NotSharedWith) > 0 {
		return fmt.Errorf("item %s was not shared with group %s", itemID, groupID)
	}
	return nil
}

// SetItemAccess sets a destination item's access level: private, org or
// public.
func (c *Client) SetItemAccess(ctx context.Context, id, access string) error {
	form := url.Values{}
	switch access {
	case "public":
		form.Set("everyone", "true")
	case "org":
		form.Set("everyone", "false")
		form.Set("org", "true")
	default:
		form.Set("everyone", "false")
		form.Set("org", "false")
	}

	if err := c.postForm(ctx, c.rest("/content/items/"+id+"/share"), form, nil); err != nil {
		return fmt.Errorf("failed to set access on item %s: %w", id, err)
	}
	return nil
}

// CreateFeatureService creates an empty hosted feature service from a
// createParameters definition.
func (c *Client) CreateFeatureService(ctx context.Context, definition models.JSONMap, folderID string) (*models.ServiceInfo, error) {
	params, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("failed to encode service definition: %w", err)
	}

	form := url.Values{}
	form.Set("createParameters", string(params))
	form.Set("outputType", "featureService")

	path := "/content/users/" + c.username
	if folderID != "" {
		path += "/" + folderID
	}

	var out struct {
		Success bool `json:"success"`
		models.ServiceInfo
	}
	if err := c.postForm(ctx, c.rest(path+"/createService"), form, &out); err != nil {
		return nil, fmt.Errorf("failed to create feature service: %w", err)
	}
	if out.ServiceItemID == "" {
		return nil, fmt.Errorf("service creation returned no item id")
	}
	return &out.ServiceInfo, nil
}

// AddToServiceDefinition posts a layers/tables payload to the service's
// admin endpoint. The destination admin API rejects concurrent definition
// updates, so callers must serialize calls per service.
func (c *Client) AddToServiceDefinition(ctx context.Context, serviceURL string, payload models.JSONMap) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode service payload: %w", err)
	}

	form := url.Values{}
	form.Set("addToDefinition", string(body))

	adminURL := strings.Replace(serviceURL, "/rest/services/", "/rest/admin/services/", 1)
	if err := c.postForm(ctx, adminURL+"/addToDefinition", form, nil); err != nil {
		return fmt.Errorf("failed to add to service definition: %w", err)
	}
	return nil
}

// RawGet fetches an arbitrary portal URL with f=json appended. It is used
// for service and layer introspection where the URL comes from item data
// rather than the sharing API.
func (c *Client) RawGet(ctx context.Context, rawURL string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, rawURL, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	return out, nil
}

// formValue flattens a JSON value into its form-encoded representation.
func formValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(raw)
	}
}

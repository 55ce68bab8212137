package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gisops/solclone/models"
)

// recordedRequest captures what the server under test saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
}

// testServer serves canned JSON per path and records every request.
func testServer(t *testing.T, responses map[string]string) (*Client, *[]recordedRequest) {
	t.Helper()

	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   r.PostForm,
		})

		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, "clone_user", "secret-token")
	require.NoError(t, err)
	return client, &seen
}

func TestFetchItem(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/sharing/rest/content/items/abc123": `{"id":"abc123","type":"Web Map","title":"Base"}`,
	})

	item, err := client.FetchItem(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Web Map", item.Str("type"))

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "json", req.Query.Get("f"))
	assert.Equal(t, "secret-token", req.Query.Get("token"))
}

func TestErrorEnvelopeInOKResponse(t *testing.T) {
	client, _ := testServer(t, map[string]string{
		"/sharing/rest/content/items/gone": `{"error":{"code":400,"message":"Item does not exist or is inaccessible."}}`,
	})

	_, err := client.FetchItem(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var portalErr *Error
	require.True(t, errors.As(err, &portalErr))
	assert.Equal(t, 400, portalErr.Code)
	assert.Contains(t, portalErr.Operation, "/content/items/gone")
}

func TestErrorNotFoundCodes(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, true},
		{403, true},
		{404, true},
		{498, false},
		{500, false},
	}

	for _, tt := range tests {
		err := &Error{Code: tt.code, Message: "x"}
		if got := IsNotFound(err); got != tt.want {
			t.Errorf("IsNotFound(code %d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFetchItemDataEmpty(t *testing.T) {
	client, _ := testServer(t, map[string]string{
		"/sharing/rest/content/items/bare/data": ``,
	})

	_, err := client.FetchItemData(context.Background(), "bare")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestFetchGroupContentsPaging(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/sharing/rest/content/groups/grp1": `{"items":[{"id":"a"},{"id":"b"}],"nextStart":3,"total":5}`,
	})

	page, err := client.FetchGroupContents(context.Background(), "grp1", models.PageRequest{Start: 1, Num: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page.ItemIDs())
	assert.Equal(t, 3, page.NextStart)

	req := (*seen)[0]
	assert.Equal(t, "1", req.Query.Get("start"))
	assert.Equal(t, "2", req.Query.Get("num"))
}

func TestCreateItem(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/sharing/rest/content/users/clone_user/folder9/addItem": `{"success":true,"id":"new123"}`,
	})

	id, err := client.CreateItem(context.Background(),
		models.JSONMap{"title": "Ops", "type": "Dashboard", "tags": []any{"a", "b"}},
		[]byte(`{"widgets":[]}`), "folder9")
	require.NoError(t, err)
	assert.Equal(t, "new123", id)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Ops", req.Form.Get("title"))
	assert.Equal(t, `["a","b"]`, req.Form.Get("tags"))
	assert.Equal(t, `{"widgets":[]}`, req.Form.Get("text"))
	assert.Equal(t, "secret-token", req.Form.Get("token"))
}

func TestCreateItemAtUserRoot(t *testing.T) {
	client, _ := testServer(t, map[string]string{
		"/sharing/rest/content/users/clone_user/addItem": `{"success":true,"id":"new123"}`,
	})

	id, err := client.CreateItem(context.Background(), models.JSONMap{"title": "Ops"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "new123", id)
}

func TestCreateFolder(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/sharing/rest/content/users/clone_user/createFolder": `{"success":true,"folder":{"id":"folderX","title":"Ops (2026)"}}`,
	})

	id, err := client.CreateFolder(context.Background(), "Ops (2026)")
	require.NoError(t, err)
	assert.Equal(t, "folderX", id)
	assert.Equal(t, "Ops (2026)", (*seen)[0].Form.Get("title"))
}

func TestShareItemWithGroupRejection(t *testing.T) {
	client, _ := testServer(t, map[string]string{
		"/sharing/rest/content/items/i1/share": `{"notSharedWith":["g1"]}`,
	})

	err := client.ShareItemWithGroup(context.Background(), "i1", "g1")
	require.Error(t, err)
}

func TestSetItemAccessForms(t *testing.T) {
	tests := []struct {
		access string
		want   url.Values
	}{
		{"public", url.Values{"everyone": {"true"}}},
		{"org", url.Values{"everyone": {"false"}, "org": {"true"}}},
		{"private", url.Values{"everyone": {"false"}, "org": {"false"}}},
	}

	for _, tt := range tests {
		t.Run(tt.access, func(t *testing.T) {
			client, seen := testServer(t, map[string]string{
				"/sharing/rest/content/items/i1/share": `{"itemId":"i1"}`,
			})
			require.NoError(t, client.SetItemAccess(context.Background(), "i1", tt.access))

			form := (*seen)[0].Form
			for key, want := range tt.want {
				assert.Equal(t, want[0], form.Get(key), "%s: form key %s", tt.access, key)
			}
		})
	}
}

func TestCreateFeatureService(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/sharing/rest/content/users/clone_user/folder9/createService": `{
			"success": true,
			"serviceItemId": "svc123",
			"serviceurl": "https://example.com/rest/services/hydrants_1/FeatureServer",
			"name": "hydrants_1"
		}`,
	})

	info, err := client.CreateFeatureService(context.Background(),
		models.JSONMap{"name": "hydrants_1", "capabilities": "Query"}, "folder9")
	require.NoError(t, err)
	assert.Equal(t, "svc123", info.ServiceItemID)
	assert.Equal(t, "hydrants_1", info.Name)

	form := (*seen)[0].Form
	assert.Equal(t, "featureService", form.Get("outputType"))

	var params models.JSONMap
	require.NoError(t, json.Unmarshal([]byte(form.Get("createParameters")), &params))
	assert.Equal(t, "hydrants_1", params.Str("name"))
}

func TestAddToServiceDefinitionUsesAdminURL(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/rest/admin/services/hydrants_1/FeatureServer/addToDefinition": `{"success":true}`,
	})

	serviceURL := client.BaseURL() + "/rest/services/hydrants_1/FeatureServer"
	err := client.AddToServiceDefinition(context.Background(), serviceURL,
		models.JSONMap{"layers": []any{map[string]any{"id": 0}}})
	require.NoError(t, err)

	req := (*seen)[0]
	assert.Equal(t, "/rest/admin/services/hydrants_1/FeatureServer/addToDefinition", req.Path)
	assert.Contains(t, req.Form.Get("addToDefinition"), `"layers"`)
}

func TestRawGetPassthrough(t *testing.T) {
	client, seen := testServer(t, map[string]string{
		"/rest/services/hydrants/FeatureServer": `{"name":"hydrants","layers":[{"id":0}]}`,
	})

	raw, err := client.RawGet(context.Background(), client.BaseURL()+"/rest/services/hydrants/FeatureServer")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"hydrants","layers":[{"id":0}]}`, string(raw))
	assert.Equal(t, "json", (*seen)[0].Query.Get("f"))
}

func TestHTTP404(t *testing.T) {
	client, _ := testServer(t, map[string]string{})

	_, err := client.FetchItem(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("", "user", "token")
	require.Error(t, err)
}

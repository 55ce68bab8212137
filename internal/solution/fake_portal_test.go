package solution

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gisops/solclone/models"
)

// fakePortal is an in-memory Portal for pipeline tests. Source-side state is
// seeded by the test; destination-side calls are recorded for assertions.
type fakePortal struct {
	mu sync.Mutex

	items      map[string]models.JSONMap
	data       map[string][]byte
	groups     map[string]models.JSONMap
	groupPages map[string]map[int]*models.GroupContentPage
	raw        map[string]json.RawMessage

	fetchCounts map[string]int
	pageCounts  map[string]int

	created      []createdRecord
	updates      map[string][]models.JSONMap
	folders      []string
	groupsMade   []models.JSONMap
	shares       [][2]string
	accessCalls  [][2]string
	services     []models.JSONMap
	definitions  []models.JSONMap
	serviceURL   string
	nextID       int
	failTypes    map[string]bool
	failRestores bool
}

type createdRecord struct {
	ID     string
	Item   models.JSONMap
	Data   []byte
	Folder string
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		items:       make(map[string]models.JSONMap),
		data:        make(map[string][]byte),
		groups:      make(map[string]models.JSONMap),
		groupPages:  make(map[string]map[int]*models.GroupContentPage),
		raw:         make(map[string]json.RawMessage),
		fetchCounts: make(map[string]int),
		pageCounts:  make(map[string]int),
		updates:     make(map[string][]models.JSONMap),
		failTypes:   make(map[string]bool),
		serviceURL:  "https://dest.example.com/rest/services/clone/FeatureServer",
	}
}

func (f *fakePortal) addItem(id string, item models.JSONMap, data string) {
	f.items[id] = item
	if data != "" {
		f.data[id] = []byte(data)
	}
}

func (f *fakePortal) FetchItem(ctx context.Context, id string) (models.JSONMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCounts[id]++
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s does not exist", id)
	}
	return item.Clone(), nil
}

func (f *fakePortal) FetchItemData(ctx context.Context, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[id]
	if !ok {
		return nil, fmt.Errorf("item %s has no data", id)
	}
	return data, nil
}

func (f *fakePortal) FetchItemResources(ctx context.Context, id string) (*models.ResourceList, error) {
	return &models.ResourceList{}, nil
}

func (f *fakePortal) FetchGroup(ctx context.Context, id string) (models.JSONMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s does not exist", id)
	}
	return group.Clone(), nil
}

func (f *fakePortal) FetchGroupContents(ctx context.Context, id string, page models.PageRequest) (*models.GroupContentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCounts[id]++
	pages, ok := f.groupPages[id]
	if !ok {
		return nil, fmt.Errorf("group %s has no contents", id)
	}
	tranche, ok := pages[page.Start]
	if !ok {
		return nil, fmt.Errorf("group %s has no page at start=%d", id, page.Start)
	}
	return tranche, nil
}

func (f *fakePortal) CreateItem(ctx context.Context, item models.JSONMap, data []byte, folderID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTypes[item.Str("type")] {
		return "", fmt.Errorf("creation of %s items is rigged to fail", item.Str("type"))
	}
	f.nextID++
	id := fmt.Sprintf("new%04d", f.nextID)
	f.created = append(f.created, createdRecord{ID: id, Item: item, Data: data, Folder: folderID})
	return id, nil
}

func (f *fakePortal) UpdateItem(ctx context.Context, id string, fields models.JSONMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append(f.updates[id], fields)
	return nil
}

func (f *fakePortal) CreateFolder(ctx context.Context, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, title)
	return fmt.Sprintf("folder%d", len(f.folders)), nil
}

func (f *fakePortal) CreateGroup(ctx context.Context, group models.JSONMap) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.groupsMade = append(f.groupsMade, group)
	return fmt.Sprintf("newgroup%04d", f.nextID), nil
}

func (f *fakePortal) ShareItemWithGroup(ctx context.Context, itemID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shares = append(f.shares, [2]string{itemID, groupID})
	return nil
}

func (f *fakePortal) SetItemAccess(ctx context.Context, id, access string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessCalls = append(f.accessCalls, [2]string{id, access})
	return nil
}

func (f *fakePortal) CreateFeatureService(ctx context.Context, definition models.JSONMap, folderID string) (*models.ServiceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.services = append(f.services, definition)
	return &models.ServiceInfo{
		ServiceItemID: fmt.Sprintf("newsvc%04d", f.nextID),
		ServiceURL:    f.serviceURL,
		Name:          definition.Str("name"),
	}, nil
}

func (f *fakePortal) AddToServiceDefinition(ctx context.Context, serviceURL string, payload models.JSONMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRestores && payloadHasRelationships(payload) {
		return fmt.Errorf("relationship restore is rigged to fail")
	}
	f.definitions = append(f.definitions, payload)
	return nil
}

func payloadHasRelationships(payload models.JSONMap) bool {
	layers, _ := payload["layers"].([]any)
	for _, l := range layers {
		if def, ok := l.(map[string]any); ok {
			if _, has := def["relationships"]; has {
				return true
			}
		}
	}
	return false
}

func (f *fakePortal) RawGet(ctx context.Context, rawURL string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.raw[rawURL]
	if !ok {
		return nil, fmt.Errorf("no response registered for %s", rawURL)
	}
	return raw, nil
}

// createdByType returns the first created item of the given type.
func (f *fakePortal) createdByType(itemType string) (createdRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.created {
		if rec.Item.Str("type") == itemType {
			return rec, true
		}
	}
	return createdRecord{}, false
}

// newTestRun wires a Run over the fake for direct handler deploy tests.
func newTestRun(f *fakePortal) *Run {
	run := &Run{
		Portal:   f,
		Values:   NewValueStore(),
		FolderID: "folder1",
	}
	run.Values.Set("portal", models.ValueEntry{URL: "https://dest.example.com"})
	return run
}

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog-wizard/internal/catalog"
	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/kv"
	"catalog-wizard/internal/middleware"
	"catalog-wizard/internal/repository"
	"catalog-wizard/internal/service"
	"catalog-wizard/internal/upload"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUploader struct {
	err error
}

func (s *stubUploader) Upload(ctx context.Context, r io.Reader, f upload.File) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example/" + f.Filename, nil
}

type testAPI struct {
	router   chi.Router
	mr       *miniredis.Miniredis
	uploader *stubUploader
	catalog  repository.CatalogRepository
}

func setupAPI(t *testing.T, remoteURL string) *testAPI {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "api")
	drafts := repository.NewDraftRepository(store)
	catalogRepo := repository.NewCatalogRepository(store)
	uploader := &stubUploader{}
	logger := zap.NewNop()

	var remote service.SnapshotFetcher
	if remoteURL != "" {
		remote = catalog.NewRemoteClient(remoteURL, nil, time.Second)
	}

	router := chi.NewRouter()
	NewWizardHandler(service.NewDraftService(drafts, catalogRepo, uploader, logger), 1<<20, logger).RegisterRoutes(router)
	NewCatalogHandler(service.NewCatalogService(catalogRepo, remote, logger), logger).RegisterRoutes(router)

	return &testAPI{router: router, mr: mr, uploader: uploader, catalog: catalogRepo}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) start(t *testing.T) StartResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/drafts", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var started StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	return started
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestWizardOverHTTP(t *testing.T) {
	api := setupAPI(t, "")
	started := api.start(t)
	assert.Equal(t, "/manage", started.Route)
	base := "/api/drafts/" + started.ID

	w := api.do(t, http.MethodPut, base+"/description", map[string]string{"name": "Air Max", "brand": "Nike"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, base+"/variants", map[string]interface{}{
		"variants": []map[string]interface{}{{"name": "Size", "values": []string{"s", "m"}}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var state domain.DraftState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Combinations, 2)

	w = api.do(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for i, c := range state.Combinations {
		w = api.do(t, http.MethodPatch, base+"/combinations/"+c.ID, map[string]interface{}{
			"sku":      fmt.Sprintf("AM-%d", i),
			"inStock":  true,
			"quantity": "3",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = api.do(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, base+"/price", map[string]interface{}{"price": 1999, "discount": 15, "discountType": "%"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Confirmed bool           `json:"confirmed"`
		Route     string         `json:"route"`
		Product   domain.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Confirmed)
	assert.Equal(t, "/", result.Route)
	assert.Equal(t, domain.DiscountPercent, result.Product.Discount.Method)
	assert.Equal(t, domain.PlaceholderImageURL, result.Product.Image)

	w = api.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot catalog.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	require.Len(t, snapshot.Products, 1)
	assert.Equal(t, "Air Max", snapshot.Products[0].Name)
}

// Property: advancing with a blank name or brand answers 409 and leaves the
// draft on the description step
func TestProperty_AdvanceFromInvalidStepIsConflict(t *testing.T) {
	api := setupAPI(t, "")

	properties := gopter.NewProperties(nil)

	properties.Property("invalid description blocks advance", prop.ForAll(
		func(name string, blankName bool) bool {
			started := api.start(t)
			base := "/api/drafts/" + started.ID

			body := map[string]string{"name": name, "brand": "   "}
			if blankName {
				body = map[string]string{"name": "  ", "brand": name}
			}
			if w := api.do(t, http.MethodPut, base+"/description", body); w.Code != http.StatusOK {
				t.Logf("FAIL: description returned %d", w.Code)
				return false
			}

			w := api.do(t, http.MethodPost, base+"/advance", nil)
			if w.Code != http.StatusConflict {
				t.Logf("FAIL: expected 409, got %d", w.Code)
				return false
			}
			if decodeError(t, w).Error.Details["step"] != float64(0) {
				t.Logf("FAIL: step moved: %s", w.Body.String())
				return false
			}

			var view struct {
				Draft domain.DraftState `json:"draft"`
			}
			w = api.do(t, http.MethodGet, base, nil)
			_ = json.Unmarshal(w.Body.Bytes(), &view)
			return view.Draft.Step == 0
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// variantsBody builds a variants payload with one variant per size
func variantsBody(sizes ...int) VariantsRequest {
	req := VariantsRequest{}
	for i, size := range sizes {
		v := VariantPayload{Name: fmt.Sprintf("V%d", i)}
		for j := 0; j < size; j++ {
			v.Values = append(v.Values, fmt.Sprintf("%d-%d", i, j))
		}
		req.Variants = append(req.Variants, v)
	}
	return req
}

func TestValidationFailures(t *testing.T) {
	api := setupAPI(t, "")
	started := api.start(t)
	base := "/api/drafts/" + started.ID

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		field  string
	}{
		{"negative price", http.MethodPut, base + "/price", map[string]interface{}{"price": -5}, "price"},
		{"bad discount type", http.MethodPut, base + "/price", map[string]interface{}{"price": 5, "discountType": "€"}, "discountType"},
		{"non digit quantity", http.MethodPatch, base + "/combinations/1", map[string]interface{}{"quantity": "12a"}, "quantity"},
		{"blank variant value", http.MethodPost, base + "/variants/0/values", map[string]interface{}{"value": "   "}, "value"},
		{"missing category name", http.MethodPost, "/api/categories", map[string]interface{}{}, "name"},
		{"too many combinations", http.MethodPut, base + "/variants", variantsBody(30, 30, 30, 30), "variants"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := api.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var response struct {
				Error struct {
					Details struct {
						ValidationErrors []middleware.ValidationError `json:"validation_errors"`
					} `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			require.NotEmpty(t, response.Error.Details.ValidationErrors)
			assert.Equal(t, tc.field, response.Error.Details.ValidationErrors[0].Field)
		})
	}
}

func TestDeleteLastVariantIsConflict(t *testing.T) {
	api := setupAPI(t, "")
	started := api.start(t)

	w := api.do(t, http.MethodDelete, "/api/drafts/"+started.ID+"/variants/0", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRemoveVariantValueDecodesPath(t *testing.T) {
	api := setupAPI(t, "")
	started := api.start(t)
	base := "/api/drafts/" + started.ID + "/variants/0/values"

	for _, value := range []string{"a/b", "50%", "s"} {
		w := api.do(t, http.MethodPost, base, map[string]string{"value": value})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := api.do(t, http.MethodDelete, base+"/A%2FB", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state domain.DraftState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, []string{"50%", "S"}, state.Variants[0].Values)

	w = api.do(t, http.MethodDelete, base+"/50%25", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, []string{"S"}, state.Variants[0].Values)
}

func TestRetreatAtFirstStepDiscardsDraft(t *testing.T) {
	api := setupAPI(t, "")
	started := api.start(t)
	base := "/api/drafts/" + started.ID

	w := api.do(t, http.MethodPost, base+"/retreat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exited":true`)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, base, nil).Code)
}

func multipartImage(t *testing.T, path string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "shoe.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestImageUpload(t *testing.T) {
	api := setupAPI(t, "")
	started := api.start(t)
	path := "/api/drafts/" + started.ID + "/image"

	api.uploader.err = fmt.Errorf("%w: timeout", upload.ErrUploadFailed)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, multipartImage(t, path))
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, true, decodeError(t, w).Error.Details["retryable"])

	api.uploader.err = nil
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, multipartImage(t, path))
	require.Equal(t, http.StatusOK, w.Code)
	var state domain.DraftState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "https://cdn.example/shoe.png", state.Form.ImageURL)

	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, multipartImage(t, path))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCatalogMergesRemoteSnapshot(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"name":"Shoe A","category":"Shoes","brand":"Nike","price":50}],"categories":[{"id":"c1","name":"Shoes"}]}`))
	}))
	defer remote.Close()

	api := setupAPI(t, remote.URL)
	require.NoError(t, api.catalog.Save(context.Background(),
		[]domain.Product{{Name: "shoe a", Category: "shoes", Brand: "nike"}, {Name: "Shoe B", Category: "Shoes", Brand: "Nike"}},
		[]domain.Category{{ID: "c2", Name: "shoes"}},
	))

	w := api.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot catalog.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Len(t, snapshot.Products, 2)
	assert.Len(t, snapshot.Categories, 1)

	w = api.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var grouped []domain.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grouped))
	require.Len(t, grouped, 1)
	assert.Len(t, grouped[0].Products, 2)
}

func TestAddCategoryOverHTTP(t *testing.T) {
	api := setupAPI(t, "")

	w := api.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Running Shoes"})
	require.Equal(t, http.StatusCreated, w.Code)

	var category domain.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &category))
	assert.Regexp(t, `^running-shoes-\d+$`, category.ID)

	w = api.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "running shoes"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

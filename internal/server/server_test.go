package server_test

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/example/go-lerp/internal/grid"
	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/mesh"
	"github.com/example/go-lerp/internal/server"
)

func newMesh(t *testing.T, axes []grid.Axis, data []float64, opts ...grid.Option) *mesh.Mesh {
	t.Helper()

	m, err := mesh.Build(axes, data, mesh.DefaultOptions(), opts...)
	if err != nil {
		t.Fatalf("mesh.Build: %v", err)
	}

	return m
}

// testCatalog holds "squares" (x -> x^2 on 0..3) and "plane" (4x3).
func testCatalog(t *testing.T) *server.Catalog {
	t.Helper()

	return server.NewCatalog(map[string]*mesh.Mesh{
		"squares": newMesh(t,
			[]grid.Axis{{Name: "x", Breakpoints: []float64{0, 1, 2, 3}}},
			[]float64{0, 1, 4, 9},
			grid.WithLabel("square"),
		),
		"plane": newMesh(t,
			[]grid.Axis{
				{Name: "x", Breakpoints: []float64{1, 2, 3, 6}},
				{Name: "y", Breakpoints: []float64{13, 454, 645}, Unit: "rpm"},
			},
			[]float64{
				0, 1, 2,
				3, 4, 5,
				6, 7, 8,
				9, 10, 11,
			},
		),
	})
}

func newTestHandler(t *testing.T, opts ...server.Option) http.Handler {
	t.Helper()
	return server.NewHandler(testCatalog(t), opts...)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	h.ServeHTTP(rec, req)

	return rec
}

type evalBody struct {
	Grid       string     `json:"grid"`
	Interp     string     `json:"interp"`
	Extrap     string     `json:"extrap"`
	Values     []*float64 `json:"values"`
	OutOfRange []bool     `json:"out_of_range"`
}

func decodeEval(t *testing.T, rec *httptest.ResponseRecorder) evalBody {
	t.Helper()

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body evalBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	return body
}

func assertValues(t *testing.T, got []*float64, want []float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("want %d values, got %d", len(want), len(got))
	}

	for i := range want {
		if got[i] == nil {
			t.Fatalf("value %d: want %v, got null", i, want[i])
		}

		if math.Abs(*got[i]-want[i]) > 1e-12 {
			t.Errorf("value %d: want %v, got %v", i, want[i], *got[i])
		}
	}
}

// ---------------------------------------------------------------------------
// GET /health, /grids
// ---------------------------------------------------------------------------

func TestHealth_Returns200WithStatusOK(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("want status=ok, got %q", body["status"])
	}

	if _, ok := body["version"]; !ok {
		t.Error("want version field in response")
	}
}

func TestGrids_ListsSortedWithDims(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grids", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var got []server.GridInfo
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(got) != 2 || got[0].Name != "plane" || got[1].Name != "squares" {
		t.Fatalf("want [plane squares], got %+v", got)
	}

	plane := got[0]
	if len(plane.Dims) != 2 || plane.Dims[1].Name != "y" || plane.Dims[1].Len != 3 {
		t.Errorf("unexpected plane dims: %+v", plane.Dims)
	}

	if plane.Dims[1].Min != 13 || plane.Dims[1].Max != 645 || plane.Dims[1].Unit != "rpm" {
		t.Errorf("unexpected y range: %+v", plane.Dims[1])
	}

	if got[1].Label != "square" {
		t.Errorf("want label square, got %q", got[1].Label)
	}
}

func TestGrids_EmptyCatalogIsEmptyArray(t *testing.T) {
	h := server.NewHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grids", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("want [], got %s", got)
	}
}

func TestGrid_ByName(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grids/squares", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var g struct {
		Axes []struct {
			Name        string    `json:"name"`
			Breakpoints []float64 `json:"breakpoints"`
		} `json:"axes"`
		Shape []int     `json:"shape"`
		Data  []float64 `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(g.Axes) != 1 || g.Axes[0].Name != "x" || len(g.Data) != 4 || g.Data[3] != 9 {
		t.Errorf("unexpected grid: %+v", g)
	}
}

func TestGrid_UnknownReturns404(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grids/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("want 404, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /eval
// ---------------------------------------------------------------------------

func TestEval_DefaultsExtrapolateLinearly(t *testing.T) {
	h := newTestHandler(t)

	body := decodeEval(t, post(t, h, "/eval", `{"grid":"squares","points":{"x":[1.5, 5, -1]}}`))

	assertValues(t, body.Values, []float64{2.5, 19, -1})

	if body.Interp != "linear" || body.Extrap != "linear" {
		t.Errorf("want linear/linear, got %s/%s", body.Interp, body.Extrap)
	}

	want := []bool{false, true, true}
	for i := range want {
		if body.OutOfRange[i] != want[i] {
			t.Errorf("out_of_range[%d]: want %v, got %v", i, want[i], body.OutOfRange[i])
		}
	}
}

func TestEval_ExplicitHold(t *testing.T) {
	h := newTestHandler(t)

	body := decodeEval(t, post(t, h, "/eval", `{"grid":"squares","points":{"x":5},"extrap":"hold"}`))

	assertValues(t, body.Values, []float64{9})
}

func TestEval_DefaultInterpOption(t *testing.T) {
	h := newTestHandler(t, server.WithDefaultInterp(lookup.Hold))

	body := decodeEval(t, post(t, h, "/eval", `{"grid":"squares","points":{"x":1.5}}`))

	if body.Interp != "hold" {
		t.Errorf("want hold, got %s", body.Interp)
	}

	assertValues(t, body.Values, []float64{1})
}

func TestEval_BroadcastsScalarAgainstArray(t *testing.T) {
	h := newTestHandler(t)

	body := decodeEval(t, post(t, h, "/eval", `{"grid":"plane","points":{"x":[1.5, 2],"y":13}}`))

	assertValues(t, body.Values, []float64{1.5, 3})
}

func TestEval_EmptyQuery(t *testing.T) {
	h := newTestHandler(t)

	body := decodeEval(t, post(t, h, "/eval", `{"grid":"squares","points":{"x":[]}}`))

	if len(body.Values) != 0 {
		t.Errorf("want no values, got %d", len(body.Values))
	}
}

func TestEval_Errors(t *testing.T) {
	h := newTestHandler(t, server.WithMaxPoints(3))

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing grid", `{"points":{"x":1}}`, http.StatusBadRequest},
		{"unknown grid", `{"grid":"nope","points":{"x":1}}`, http.StatusNotFound},
		{"unknown method", `{"grid":"squares","points":{"x":1},"interp":"spline"}`, http.StatusBadRequest},
		{"unknown extrap", `{"grid":"squares","points":{"x":1},"extrap":"none"}`, http.StatusBadRequest},
		{"unknown dimension", `{"grid":"squares","points":{"q":1}}`, http.StatusBadRequest},
		{"missing dimension", `{"grid":"plane","points":{"x":1}}`, http.StatusBadRequest},
		{"broadcast mismatch", `{"grid":"plane","points":{"x":[1,2],"y":[13,14,15]}}`, http.StatusBadRequest},
		{"too many points", `{"grid":"squares","points":{"x":[0,1,2,3]}}`, http.StatusRequestEntityTooLarge},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := post(t, h, "/eval", c.body)
			if rec.Code != c.want {
				t.Fatalf("want %d, got %d: %s", c.want, rec.Code, rec.Body.String())
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}

			if body["error"] == "" {
				t.Error("want error field in response")
			}
		})
	}
}

func TestEval_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eval", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("want 405, got %d", rec.Code)
	}
}

func TestEval_BodyTooLarge(t *testing.T) {
	h := newTestHandler(t, server.WithMaxBodyBytes(16))

	rec := post(t, h, "/eval", `{"grid":"squares","points":{"x":[0,1,2,3,0,1,2,3]}}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("want 413, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /derivative
// ---------------------------------------------------------------------------

func TestDerivative_LinearSlope(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h, "/derivative", `{"grid":"plane","points":{"x":[1.5, 4],"y":100}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Values   []*float64            `json:"values"`
		Gradient map[string][]*float64 `json:"gradient"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	// d/dx: 3 per unit on [1,2], 1 per unit on [3,6]; d/dy: 1/441 on [13,454].
	assertValues(t, body.Gradient["x"], []float64{3, 1})
	assertValues(t, body.Gradient["y"], []float64{1.0 / 441, 1.0 / 441})
	assertValues(t, body.Values, []float64{3 + 1.0/441, 1 + 1.0/441})
}

func TestDerivative_Steps(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h, "/derivative", `{"grid":"squares","points":{"x":1.5},"steps":{"x":0.25},"interp":"akima"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	for _, body := range []string{
		`{"grid":"squares","points":{"x":1.5},"steps":{"x":0}}`,
		`{"grid":"squares","points":{"x":1.5},"steps":{"x":-1}}`,
		`{"grid":"squares","points":{"x":1.5},"steps":{"q":1}}`,
		`{"grid":"squares","points":{"x":1.5},"steps":{"x":[1,2]}}`,
	} {
		if rec := post(t, h, "/derivative", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: want 400, got %d", body, rec.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// POST /resample
// ---------------------------------------------------------------------------

func TestResample_ReturnsGrid(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h, "/resample", `{"grid":"squares","axes":{"x":[0, 0.5, 3]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var g struct {
		Shape []int     `json:"shape"`
		Data  []float64 `json:"data"`
		Label string    `json:"label"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(g.Shape) != 1 || g.Shape[0] != 3 {
		t.Fatalf("want shape [3], got %v", g.Shape)
	}

	want := []float64{0, 0.5, 9}
	for i := range want {
		if math.Abs(g.Data[i]-want[i]) > 1e-12 {
			t.Errorf("data[%d]: want %v, got %v", i, want[i], g.Data[i])
		}
	}

	if g.Label != "square" {
		t.Errorf("want label square, got %q", g.Label)
	}
}

func TestResample_NullAxisKeepsBreakpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h, "/resample", `{"grid":"plane","axes":{"x":null,"y":[13, 645]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var g struct {
		Shape []int     `json:"shape"`
		Data  []float64 `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if !slices.Equal(g.Shape, []int{4, 2}) {
		t.Fatalf("want shape [4 2], got %v", g.Shape)
	}

	if want := []float64{0, 2, 3, 5, 6, 8, 9, 11}; !slices.Equal(g.Data, want) {
		t.Errorf("want data %v, got %v", want, g.Data)
	}
}

func TestResample_Errors(t *testing.T) {
	h := newTestHandler(t, server.WithMaxPoints(5))

	cases := map[string]struct {
		body string
		want int
	}{
		"not increasing": {`{"grid":"squares","axes":{"x":[1, 0]}}`, http.StatusBadRequest},
		"empty axis":     {`{"grid":"squares","axes":{"x":[]}}`, http.StatusBadRequest},
		"unknown dim":    {`{"grid":"squares","axes":{"q":[1]}}`, http.StatusBadRequest},
		"too large":      {`{"grid":"plane","axes":{"x":[1, 2]}}`, http.StatusRequestEntityTooLarge},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := post(t, h, "/resample", c.body); rec.Code != c.want {
				t.Errorf("want %d, got %d: %s", c.want, rec.Code, rec.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// GET /metrics
// ---------------------------------------------------------------------------

func TestMetrics_CountsRequestsAndPoints(t *testing.T) {
	h := newTestHandler(t)

	post(t, h, "/eval", `{"grid":"squares","points":{"x":[0.5, 1.5]}}`)
	post(t, h, "/eval", `{"grid":"nope","points":{"x":1}}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	out := rec.Body.String()
	for _, want := range []string{
		`lerp_requests_total{code="200",endpoint="eval"} 1`,
		`lerp_requests_total{code="404",endpoint="eval"} 1`,
		`lerp_points_total{endpoint="eval"} 2`,
		`lerp_request_duration_seconds_count{endpoint="eval"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clustersim/internal/cluster"
	"clustersim/internal/node"
	"clustersim/internal/types"
)

type discardLogger struct{}

func (discardLogger) Printf(string, ...interface{}) {}

// setup builds an unstarted three-node mesh behind the API. Lifecycle and
// observability endpoints do not need running loops.
func setup(t *testing.T) (*httptest.Server, *cluster.Cluster) {
	t.Helper()
	cfg := node.Config{
		HeartbeatInterval: 10 * time.Millisecond,
		ReceiveTimeoutMin: 40 * time.Millisecond,
		ReceiveTimeoutMax: 80 * time.Millisecond,
	}
	c, err := cluster.FullMesh([]string{"a", "b", "c"}, cfg, 1, discardLogger{})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(c).Handler())
	t.Cleanup(srv.Close)
	return srv, c
}

func getJSON(t *testing.T, url string, wantStatus int, dst interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatal(err)
		}
	}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPI_Healthz(t *testing.T) {
	srv, _ := setup(t)
	var body map[string]string
	getJSON(t, srv.URL+"/healthz", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Fatalf("expected ok, got %v", body)
	}
}

func TestAPI_ListAndGetNodes(t *testing.T) {
	srv, _ := setup(t)

	var list struct {
		Nodes []types.NodeStatus `json:"nodes"`
	}
	getJSON(t, srv.URL+"/nodes", http.StatusOK, &list)
	if len(list.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(list.Nodes))
	}

	var st types.NodeStatus
	getJSON(t, srv.URL+"/nodes/a", http.StatusOK, &st)
	if st.Name != "a" || st.Role != "follower" || st.Status != "alive" {
		t.Fatalf("unexpected node snapshot: %+v", st)
	}
	if len(st.Neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %v", st.Neighbors)
	}

	getJSON(t, srv.URL+"/nodes/ghost", http.StatusNotFound, nil)
}

func TestAPI_LeaderUnavailableBeforeElection(t *testing.T) {
	srv, _ := setup(t)
	getJSON(t, srv.URL+"/leader", http.StatusServiceUnavailable, nil)
}

func TestAPI_Propose(t *testing.T) {
	srv, _ := setup(t)

	resp := postJSON(t, srv.URL+"/nodes/a/propose", map[string]string{"value": "v1"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/nodes/a/propose", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing value: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/nodes/ghost/propose", map[string]string{"value": "v"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown node: expected 404, got %d", resp.StatusCode)
	}
}

func TestAPI_StopAndFail(t *testing.T) {
	srv, c := setup(t)

	resp := postJSON(t, srv.URL+"/nodes/a/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
	a, _ := c.Node("a")
	if a.Status() != types.StatusStopped {
		t.Fatalf("expected stopped, got %s", a.Status())
	}

	resp = postJSON(t, srv.URL+"/nodes/b/fail", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fail: expected 200, got %d", resp.StatusCode)
	}
	b, _ := c.Node("b")
	if b.Status() != types.StatusFailed {
		t.Fatalf("expected failed, got %s", b.Status())
	}
	cNode, _ := c.Node("c")
	for _, neighbor := range cNode.Neighbors() {
		if neighbor == "b" {
			t.Fatal("failed node must disappear from peers' neighbor sets")
		}
	}

	resp = postJSON(t, srv.URL+"/nodes/ghost/fail", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown node: expected 404, got %d", resp.StatusCode)
	}
}

func TestAPI_NodeLog(t *testing.T) {
	srv, _ := setup(t)
	var body struct {
		Log []string `json:"log"`
	}
	getJSON(t, srv.URL+"/nodes/a/log", http.StatusOK, &body)
	if len(body.Log) != 0 {
		t.Fatalf("expected empty log, got %v", body.Log)
	}
	getJSON(t, srv.URL+"/nodes/ghost/log", http.StatusNotFound, nil)
}

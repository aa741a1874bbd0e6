// Package graphtest provides an in-memory fake of the Graph drive endpoints
// for one site and drive, served over httptest. Tests seed folders and files,
// inject failures, and inspect the requests the code under test made.
package graphtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wnmlab/sharepoint-go/pkg/quickxorhash"
)

// Identifiers the fake serves. Requests for any other site or drive get 404.
const (
	SiteID  = "contoso.sharepoint.com,site-1"
	DriveID = "drive-1"
	Token   = "test-token"
)

// Fault makes matching requests fail with Status. Method and PathContains
// narrow the match; empty fields match anything. Times limits how often the
// fault fires; zero means every time.
type Fault struct {
	Method       string
	PathContains string
	Status       int
	Times        int
}

// Request is what the fake recorded about one incoming request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	ClientID      string
}

type node struct {
	id       string
	name     string
	parentID string
	folder   bool
	data     []byte
	mimeType string
	hash     string // reported instead of the real digest when set
	seq      int
	modified time.Time
}

type drive struct {
	id   string
	name string
}

// Server is the fake. All methods are safe for concurrent use.
type Server struct {
	mu         sync.Mutex
	srv        *httptest.Server
	nodes      map[string]*node
	rootID     string
	token      string
	faults     []*Fault
	requests   []Request
	seq        int
	uploadHash string
	drives     []drive
}

// New starts a fake holding an empty drive root. It is closed on test cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		nodes:  make(map[string]*node),
		token:  Token,
		drives: []drive{{id: DriveID, name: "Documents"}},
	}

	root := s.newNode("root", "", true)
	s.rootID = root.id

	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.srv.Close)

	return s
}

// URL is the base URL to hand to graph.NewClient.
func (s *Server) URL() string {
	return s.srv.URL
}

// SetToken changes the bearer token the fake accepts.
func (s *Server) SetToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = tok
}

// SetUploadHash makes files written by subsequent uploads report h as their
// QuickXorHash instead of the real digest. An empty h restores the real digest.
func (s *Server) SetUploadHash(h string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploadHash = h
}

// AddDrive registers another document library under the site.
func (s *Server) AddDrive(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drives = append(s.drives, drive{id: id, name: name})
}

// Fail registers a fault.
func (s *Server) Fail(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc := f
	s.faults = append(s.faults, &fc)
}

// AddFolder creates the folder at p and any missing ancestors, returning its ID.
func (s *Server) AddFolder(p string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensureFolder(splitPath(p)).id
}

// AddFile stores data at p, creating missing ancestor folders, and returns
// the file's ID. An existing file is overwritten in place.
func (s *Server) AddFile(p string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	segs := splitPath(p)
	parent := s.ensureFolder(segs[:len(segs)-1])

	if existing := s.child(parent.id, segs[len(segs)-1]); existing != nil {
		existing.data = append([]byte(nil), data...)

		return existing.id
	}

	n := s.newNode(segs[len(segs)-1], parent.id, false)
	n.data = append([]byte(nil), data...)
	n.mimeType = "application/octet-stream"

	return n.id
}

// Content returns a copy of the file at p.
func (s *Server) Content(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(splitPath(p))
	if n == nil || n.folder {
		return nil, false
	}

	return append([]byte(nil), n.data...), true
}

// ContentType returns the content type the file at p was last uploaded with.
func (s *Server) ContentType(p string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.lookup(splitPath(p)); n != nil {
		return n.mimeType
	}

	return ""
}

// Exists reports whether any item lives at p.
func (s *Server) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(splitPath(p)) != nil
}

// ID returns the item ID at p, or "" when absent.
func (s *Server) ID(p string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.lookup(splitPath(p)); n != nil {
		return n.id
	}

	return ""
}

// Names lists the children of folder in creation order.
func (s *Server) Names(folder string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(splitPath(folder))
	if n == nil {
		return nil
	}

	var names []string
	for _, c := range s.children(n.id) {
		names = append(names, c.name)
	}

	return names
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// Mutations counts received requests that could change drive state,
// whether or not they succeeded.
func (s *Server) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, r := range s.requests {
		switch r.Method {
		case http.MethodPut, http.MethodPost, http.MethodPatch, http.MethodDelete:
			count++
		}
	}

	return count
}

// --- tree helpers; callers hold s.mu ---

func (s *Server) newNode(name, parentID string, folder bool) *node {
	s.seq++

	n := &node{
		id:       "item-" + strconv.Itoa(s.seq),
		name:     name,
		parentID: parentID,
		folder:   folder,
		seq:      s.seq,
		modified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(s.seq) * time.Second),
	}
	s.nodes[n.id] = n

	return n
}

func splitPath(p string) []string {
	var segs []string

	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}

	return segs
}

func (s *Server) children(parentID string) []*node {
	var out []*node

	for _, n := range s.nodes {
		if n.parentID == parentID && n.id != s.rootID {
			out = append(out, n)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })

	return out
}

// child matches names case-insensitively, as SharePoint does.
func (s *Server) child(parentID, name string) *node {
	for _, n := range s.children(parentID) {
		if strings.EqualFold(n.name, name) {
			return n
		}
	}

	return nil
}

func (s *Server) lookup(segs []string) *node {
	cur := s.nodes[s.rootID]

	for _, seg := range segs {
		if !cur.folder {
			return nil
		}

		cur = s.child(cur.id, seg)
		if cur == nil {
			return nil
		}
	}

	return cur
}

func (s *Server) ensureFolder(segs []string) *node {
	cur := s.nodes[s.rootID]

	for _, seg := range segs {
		next := s.child(cur.id, seg)
		if next == nil {
			next = s.newNode(seg, cur.id, true)
		}

		cur = next
	}

	return cur
}

func (s *Server) pathOf(n *node) string {
	var segs []string

	for cur := n; cur != nil && cur.id != s.rootID; cur = s.nodes[cur.parentID] {
		segs = append([]string{cur.name}, segs...)
	}

	return strings.Join(segs, "/")
}

func (s *Server) removeTree(id string) {
	for _, c := range s.children(id) {
		s.removeTree(c.id)
	}

	delete(s.nodes, id)
}

// --- HTTP ---

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		ClientID:      r.Header.Get("client-request-id"),
	})

	if status, ok := s.fault(r); ok {
		writeError(w, status, "injectedFault", "injected failure")

		return
	}

	if strings.HasPrefix(r.URL.Path, "/download/") {
		s.serveDownload(w, r)

		return
	}

	if r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, http.StatusUnauthorized, "InvalidAuthenticationToken", "access token is invalid")

		return
	}

	sitePrefix := "/sites/" + SiteID

	if r.URL.Path == sitePrefix+"/drives" && r.Method == http.MethodGet {
		s.serveDrives(w)

		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, sitePrefix+"/drives/"+DriveID)
	if !ok {
		writeError(w, http.StatusNotFound, "itemNotFound", "unknown site or drive")

		return
	}

	switch {
	case rest == "/root":
		s.serveItem(w, r, s.nodes[s.rootID], "")
	case rest == "/root/children":
		s.serveItem(w, r, s.nodes[s.rootID], "children")
	case strings.HasPrefix(rest, "/root:/"):
		sub := strings.TrimPrefix(rest, "/root:/")
		action := ""

		if i := strings.LastIndex(sub, ":/"); i >= 0 {
			sub, action = sub[:i], sub[i+2:]
		}

		sub = strings.TrimSuffix(sub, ":")
		s.servePath(w, r, splitPath(sub), action)
	case strings.HasPrefix(rest, "/items/"):
		n := s.nodes[strings.TrimPrefix(rest, "/items/")]
		if n == nil {
			writeError(w, http.StatusNotFound, "itemNotFound", "item not found")

			return
		}

		s.serveItem(w, r, n, "")
	default:
		writeError(w, http.StatusBadRequest, "invalidRequest", "unsupported path")
	}
}

func (s *Server) fault(r *http.Request) (int, bool) {
	for i, f := range s.faults {
		if f.Method != "" && f.Method != r.Method {
			continue
		}

		if f.PathContains != "" && !strings.Contains(r.URL.Path, f.PathContains) {
			continue
		}

		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
			}
		}

		return f.Status, true
	}

	return 0, false
}

func (s *Server) servePath(w http.ResponseWriter, r *http.Request, segs []string, action string) {
	if action == "content" && r.Method == http.MethodPut {
		s.serveUpload(w, r, segs)

		return
	}

	n := s.lookup(segs)
	if n == nil {
		writeError(w, http.StatusNotFound, "itemNotFound", "item not found")

		return
	}

	s.serveItem(w, r, n, action)
}

func (s *Server) serveItem(w http.ResponseWriter, r *http.Request, n *node, action string) {
	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.itemJSON(n))
	case action == "" && r.Method == http.MethodPatch:
		s.serveMove(w, r, n)
	case action == "" && r.Method == http.MethodDelete:
		s.removeTree(n.id)
		w.WriteHeader(http.StatusNoContent)
	case action == "children" && r.Method == http.MethodGet:
		s.serveChildren(w, r, n)
	case action == "children" && r.Method == http.MethodPost:
		s.serveCreateFolder(w, r, n)
	default:
		writeError(w, http.StatusMethodNotAllowed, "invalidRequest", "unsupported method")
	}
}

func (s *Server) serveChildren(w http.ResponseWriter, r *http.Request, n *node) {
	if !n.folder {
		writeError(w, http.StatusBadRequest, "invalidRequest", "item is not a folder")

		return
	}

	kids := s.children(n.id)

	top, err := strconv.Atoi(r.URL.Query().Get("$top"))
	if err != nil || top <= 0 {
		top = len(kids)
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("$skiptoken")) //nolint:errcheck // absent means zero
	skip = min(skip, len(kids))
	end := min(skip+top, len(kids))

	values := make([]map[string]any, 0, end-skip)
	for _, c := range kids[skip:end] {
		values = append(values, s.itemJSON(c))
	}

	body := map[string]any{"value": values}
	if end < len(kids) {
		body["@odata.nextLink"] = fmt.Sprintf("%s%s?$top=%d&$skiptoken=%d", s.srv.URL, r.URL.EscapedPath(), top, end)
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) serveCreateFolder(w http.ResponseWriter, r *http.Request, parent *node) {
	var req struct {
		Name             string `json:"name"`
		ConflictBehavior string `json:"@microsoft.graph.conflictBehavior"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalidRequest", "bad folder request")

		return
	}

	if existing := s.child(parent.id, req.Name); existing != nil {
		if req.ConflictBehavior != "replace" {
			writeError(w, http.StatusConflict, "nameAlreadyExists", "an item with this name already exists")

			return
		}

		s.removeTree(existing.id)
	}

	writeJSON(w, http.StatusCreated, s.itemJSON(s.newNode(req.Name, parent.id, true)))
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request, segs []string) {
	if len(segs) == 0 {
		writeError(w, http.StatusBadRequest, "invalidRequest", "missing file name")

		return
	}

	parent := s.lookup(segs[:len(segs)-1])
	if parent == nil || !parent.folder {
		writeError(w, http.StatusNotFound, "itemNotFound", "parent folder not found")

		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalidRequest", "unreadable body")

		return
	}

	name := segs[len(segs)-1]
	behavior := r.URL.Query().Get("@microsoft.graph.conflictBehavior")
	status := http.StatusCreated

	n := s.child(parent.id, name)

	switch {
	case n != nil && n.folder:
		writeError(w, http.StatusConflict, "nameAlreadyExists", "a folder with this name already exists")

		return
	case n != nil && behavior == "fail":
		writeError(w, http.StatusConflict, "nameAlreadyExists", "an item with this name already exists")

		return
	case n != nil && behavior == "rename":
		n = s.newNode(s.freeName(parent.id, name), parent.id, false)
	case n != nil:
		status = http.StatusOK
		n.modified = n.modified.Add(time.Minute)
	default:
		n = s.newNode(name, parent.id, false)
	}

	n.data = data
	n.mimeType = r.Header.Get("Content-Type")
	n.hash = s.uploadHash

	writeJSON(w, status, s.itemJSON(n))
}

func (s *Server) freeName(parentID, name string) string {
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s %d%s", base, i, ext)
		if s.child(parentID, candidate) == nil {
			return candidate
		}
	}
}

func (s *Server) serveMove(w http.ResponseWriter, r *http.Request, n *node) {
	var req struct {
		Name            string `json:"name"`
		ParentReference *struct {
			ID string `json:"id"`
		} `json:"parentReference"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalidRequest", "bad move request")

		return
	}

	parentID := n.parentID
	if req.ParentReference != nil && req.ParentReference.ID != "" {
		parentID = req.ParentReference.ID
	}

	parent := s.nodes[parentID]
	if parent == nil || !parent.folder {
		writeError(w, http.StatusBadRequest, "invalidRequest", "target parent is not a folder")

		return
	}

	name := n.name
	if req.Name != "" {
		name = req.Name
	}

	if other := s.child(parentID, name); other != nil && other.id != n.id {
		writeError(w, http.StatusConflict, "nameAlreadyExists", "an item with this name already exists")

		return
	}

	n.parentID = parentID
	n.name = name

	writeJSON(w, http.StatusOK, s.itemJSON(n))
}

func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request) {
	n := s.nodes[strings.TrimPrefix(r.URL.Path, "/download/")]
	if n == nil || n.folder || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "itemNotFound", "content not found")

		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(n.data) //nolint:errcheck // test server
}

func (s *Server) serveDrives(w http.ResponseWriter) {
	values := make([]map[string]any, 0, len(s.drives))
	for _, d := range s.drives {
		values = append(values, map[string]any{
			"id":        d.id,
			"name":      d.name,
			"driveType": "documentLibrary",
			"webUrl":    "https://contoso.sharepoint.com/sites/site-1/" + d.name,
			"quota":     map[string]any{"used": 1024, "total": 1 << 40},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"value": values})
}

func (s *Server) itemJSON(n *node) map[string]any {
	out := map[string]any{
		"id":                   n.id,
		"name":                 n.name,
		"eTag":                 fmt.Sprintf("\"{%s},%d\"", n.id, n.seq),
		"webUrl":               "https://contoso.sharepoint.com/sites/site-1/Shared%20Documents/" + s.pathOf(n),
		"createdDateTime":      n.modified.Format(time.RFC3339),
		"lastModifiedDateTime": n.modified.Format(time.RFC3339),
	}

	if n.id != s.rootID {
		parentPath := "/drives/" + DriveID + "/root:"
		if p := s.pathOf(s.nodes[n.parentID]); p != "" {
			parentPath += "/" + p
		}

		out["parentReference"] = map[string]any{
			"id":      n.parentID,
			"driveId": DriveID,
			"path":    parentPath,
		}
	}

	if n.folder {
		out["size"] = 0
		out["folder"] = map[string]any{"childCount": len(s.children(n.id))}

		return out
	}

	hash := quickxorhash.Base64(n.data)
	if n.hash != "" {
		hash = n.hash
	}

	out["size"] = len(n.data)
	out["file"] = map[string]any{
		"mimeType": n.mimeType,
		"hashes":   map[string]any{"quickXorHash": hash},
	}
	out["@microsoft.graph.downloadUrl"] = s.srv.URL + "/download/" + n.id + "?tempauth=fake"

	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("request-id", "fake-"+strconv.Itoa(status))
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

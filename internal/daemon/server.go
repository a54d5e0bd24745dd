package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jcdickinson/docnet/internal/cas"
	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/db"
	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/indexer"
	md "github.com/jcdickinson/docnet/internal/markdown"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/jcdickinson/docnet/internal/rpc"
	"golang.org/x/sync/singleflight"
)

type Server struct {
	db          *db.DB
	pages       *cas.Store
	cfg         *config.Config
	manifestDir string
	socketPath  string
	httpServer  *http.Server
	listener    net.Listener

	mu         sync.Mutex
	expTimer   *time.Timer
	expiration time.Duration

	indexGroup singleflight.Group
	// storeMu keeps pruning away from pages an index run has written but
	// not yet recorded.
	storeMu sync.Mutex

	indexCache   map[string]*members.Index
	indexCacheMu sync.RWMutex
}

func NewServer(cfg *config.Config, database *db.DB, pages *cas.Store, socketPath string) *Server {
	expSec := cfg.Daemon.ExpirationSeconds
	if expSec <= 0 {
		expSec = 600
	}

	return &Server{
		db:          database,
		pages:       pages,
		cfg:         cfg,
		manifestDir: config.ManifestDir(),
		socketPath:  socketPath,
		expiration:  time.Duration(expSec) * time.Second,
		indexCache:  make(map[string]*members.Index),
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /index", s.withExpReset(s.handleIndex))
	mux.HandleFunc("POST /get-doc", s.withExpReset(s.handleGetDoc))
	mux.HandleFunc("POST /resolve", s.withExpReset(s.handleResolve))
	mux.HandleFunc("POST /list-members", s.withExpReset(s.handleListMembers))
	mux.HandleFunc("POST /unresolved", s.withExpReset(s.handleUnresolved))
	mux.HandleFunc("GET /status", s.withExpReset(s.handleStatus))
	mux.HandleFunc("POST /remove", s.withExpReset(s.handleRemove))
	mux.HandleFunc("POST /prune", s.withExpReset(s.handlePrune))
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.handler()}

	s.mu.Lock()
	s.expTimer = time.AfterFunc(s.expiration, s.expire)
	s.mu.Unlock()

	slog.Info("daemon listening", "socket", s.socketPath, "expires_after", s.expiration)

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.expTimer != nil {
		s.expTimer.Stop()
	}
	s.mu.Unlock()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("closing listener failed", "error", err)
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		slog.Error("removing socket failed", "error", err)
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		slog.Error("closing database failed", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) expire() {
	slog.Info("daemon expiring after inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	os.Exit(0)
}

func (s *Server) resetExpiration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expTimer != nil {
		s.expTimer.Stop()
		s.expTimer.Reset(s.expiration)
	}
}

func (s *Server) withExpReset(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resetExpiration()
		handler(w, r)
	}
}

// --- Indexing ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req rpc.IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	send := func(line rpc.ProgressLine) bool {
		if line.Message != "" {
			slog.Info(line.Message)
		}
		if err := enc.Encode(line); err != nil {
			slog.Warn("client disconnected", "error", err)
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for _, spec := range req.Assemblies {
		progress := func(msg string) {
			send(rpc.ProgressLine{Type: "progress", Message: msg})
		}
		result := s.indexAssembly(r.Context(), spec, progress)
		if !send(rpc.ProgressLine{Type: "result", Result: &result}) {
			return
		}
	}
}

// indexAssembly deduplicates concurrent requests for the same inputs.
func (s *Server) indexAssembly(ctx context.Context, spec rpc.AssemblySpec, progress func(string)) rpc.IndexResult {
	key := spec.Members + "\x00" + spec.Docs
	v, _, _ := s.indexGroup.Do(key, func() (interface{}, error) {
		return s.indexWork(ctx, spec, progress), nil
	})
	return v.(rpc.IndexResult)
}

func (s *Server) indexWork(ctx context.Context, spec rpc.AssemblySpec, progress func(string)) rpc.IndexResult {
	var result rpc.IndexResult

	progress(fmt.Sprintf("resolving %s against %s", filepath.Base(spec.Docs), filepath.Base(spec.Members)))
	b, err := indexer.Load(ctx, spec.Members, spec.Docs, s.cfg.Resolve.Workers)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Assembly = b.Assembly
	result.Reasons = make(map[string]int)
	for reason, n := range b.Summary() {
		result.Reasons[reason.String()] = n
	}

	s.storeMu.Lock()
	stats, err := indexer.Store(s.db, s.pages, b, indexer.Options{
		Render:          s.cfg.Render.Options(),
		StoreUnresolved: s.cfg.Index.StoreUnresolved,
		ManifestDir:     s.manifestDir,
	}, progress)
	s.storeMu.Unlock()
	if err != nil {
		result.Error = fmt.Sprintf("storing %s: %v", b.Assembly, err)
		return result
	}

	s.indexCacheMu.Lock()
	s.indexCache[b.Assembly] = b.Index
	s.indexCacheMu.Unlock()

	result.Members = stats.Members
	result.Documented = stats.Documented
	result.Unresolved = stats.Unresolved
	progress(fmt.Sprintf("finished indexing %s (%d members, %d documented, %d unresolved)",
		b.Assembly, stats.Members, stats.Documented, stats.Unresolved))
	return result
}

// memberIndex returns the member index of an indexed assembly, loading the
// cached manifest on first use. It returns nil if there is none.
func (s *Server) memberIndex(assembly string) *members.Index {
	s.indexCacheMu.RLock()
	idx, ok := s.indexCache[assembly]
	s.indexCacheMu.RUnlock()
	if ok {
		return idx
	}

	m, err := members.LoadCache(s.manifestDir, assembly)
	if err != nil {
		return nil
	}
	idx = members.Build(m.Members)

	s.indexCacheMu.Lock()
	s.indexCache[assembly] = idx
	s.indexCacheMu.Unlock()
	return idx
}

// --- Lookups ---

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req rpc.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	idx := s.memberIndex(req.Assembly)
	if idx == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("assembly %s is not indexed", req.Assembly))
		return
	}

	id := docid.Parse(req.DocID)
	match := resolve.Resolve(id, idx)
	resp := rpc.ResolveResponse{
		DocID:      req.DocID,
		Reason:     match.Reason.String(),
		Candidates: match.Candidates,
		Detail:     match.Detail,
	}
	if match.OK() {
		resp.Canonical = match.Member.DocID()
		resp.Kind = match.Member.Kind.String()
		resp.DeclaringType = match.Member.DeclaringTypeName
		resp.URI = docs.URI(req.Assembly, resp.Canonical)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	asm, ok := s.assembly(w, req.Assembly)
	if !ok {
		return
	}

	member, err := s.db.GetMember(asm.ID, req.DocID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Hand-written doc-ids are resolved to their canonical spelling.
	if member == nil {
		if idx := s.memberIndex(asm.Name); idx != nil {
			if match := resolve.Resolve(docid.Parse(req.DocID), idx); match.OK() {
				member, err = s.db.GetMember(asm.ID, match.Member.DocID())
				if err != nil {
					writeError(w, http.StatusInternalServerError, err.Error())
					return
				}
			}
		}
	}
	if member == nil || member.ContentHash == "" {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found in %s", req.DocID, asm.Name))
		return
	}

	text, err := s.pages.Read(member.ContentHash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Section != "" {
		_, body := md.SplitFrontMatter(text)
		section, ok := md.FindSection(body, req.Section)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("section %q not found for %s", req.Section, member.DocID))
			return
		}
		text = section.Text + "\n"
	}

	if err := s.db.TouchAssembly(asm.ID); err != nil {
		slog.Warn("touching assembly failed", "assembly", asm.Name, "error", err)
	}
	writeJSON(w, http.StatusOK, rpc.GetDocResponse{Markdown: text})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	var req rpc.ListMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	asm, ok := s.assembly(w, req.Assembly)
	if !ok {
		return
	}

	rows, err := s.db.ListMembersByType(asm.ID, members.NormalizeTypeName(req.Type))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := rpc.ListMembersResponse{Members: make([]rpc.MemberInfo, 0, len(rows))}
	for _, m := range rows {
		resp.Members = append(resp.Members, rpc.MemberInfo{
			DocID:      m.DocID,
			Kind:       m.Kind,
			Name:       m.Name,
			URI:        docs.URI(asm.Name, m.DocID),
			Documented: m.Documented,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnresolved(w http.ResponseWriter, r *http.Request) {
	var req rpc.UnresolvedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reason != "" {
		var reason resolve.Reason
		if err := reason.UnmarshalText([]byte(req.Reason)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	asm, ok := s.assembly(w, req.Assembly)
	if !ok {
		return
	}

	rows, err := s.db.ListUnresolved(asm.ID, req.Reason)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := rpc.UnresolvedResponse{Entries: make([]rpc.UnresolvedEntry, 0, len(rows))}
	for _, u := range rows {
		resp.Entries = append(resp.Entries, rpc.UnresolvedEntry{
			DocID:      u.DocID,
			Reason:     u.Reason,
			Candidates: u.Candidates,
			Detail:     u.Detail,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	assemblies, err := s.db.ListAssemblies()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := rpc.StatusResponse{Assemblies: []rpc.AssemblyStatus{}}
	for _, a := range assemblies {
		status.Assemblies = append(status.Assemblies, rpc.AssemblyStatus{
			Name:       a.Name,
			Members:    a.MemberCount,
			Documented: a.DocumentedCount,
			Indexed:    a.IndexedAt != nil,
		})
	}
	writeJSON(w, http.StatusOK, status)
}

// --- Maintenance ---

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req rpc.RemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	asm, err := s.db.GetAssembly(req.Assembly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var resp rpc.RemoveResponse
	if asm != nil {
		if err := s.db.DeleteAssembly(asm.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Removed = true
	}
	if err := members.RemoveCache(s.manifestDir, req.Assembly); err != nil {
		slog.Warn("removing cached manifest failed", "assembly", req.Assembly, "error", err)
	}
	s.indexCacheMu.Lock()
	delete(s.indexCache, req.Assembly)
	s.indexCacheMu.Unlock()

	pruned, err := s.prune()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.PrunedPages = pruned
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	pruned, err := s.prune()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rpc.PruneResponse{PrunedPages: pruned})
}

// prune deletes pages no member refers to any more.
func (s *Server) prune() (int, error) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	keep, err := s.db.ContentHashes()
	if err != nil {
		return 0, fmt.Errorf("listing content hashes: %w", err)
	}
	n, err := s.pages.Prune(keep)
	if err != nil {
		return n, err
	}
	if n > 0 {
		slog.Info("pruned unreferenced pages", "count", n)
	}
	return n, nil
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
		os.Exit(0)
	}()
}

// assembly looks up an indexed assembly, writing a 404 when it is missing.
func (s *Server) assembly(w http.ResponseWriter, name string) (*db.Assembly, bool) {
	asm, err := s.db.GetAssembly(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if asm == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("assembly %s is not indexed", name))
		return nil, false
	}
	return asm, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

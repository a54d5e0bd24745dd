package rpc

// IndexRequest is the request body for POST /index.
type IndexRequest struct {
	Assemblies []AssemblySpec `json:"assemblies"`
}

// AssemblySpec names the two inputs for one assembly. Paths are resolved by
// the daemon, so clients send absolute paths.
type AssemblySpec struct {
	Members string `json:"members"`
	Docs    string `json:"docs"`
}

type IndexResult struct {
	Assembly   string         `json:"assembly"`
	Members    int            `json:"members"`
	Documented int            `json:"documented"`
	Unresolved int            `json:"unresolved"`
	Reasons    map[string]int `json:"reasons,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// IndexResponse collects the results streamed from POST /index.
type IndexResponse struct {
	Results []IndexResult `json:"results"`
}

// ProgressLine is a single line of NDJSON streamed from the index endpoint.
type ProgressLine struct {
	Type    string       `json:"type"` // "progress" or "result"
	Message string       `json:"message,omitempty"`
	Result  *IndexResult `json:"result,omitempty"`
}

// GetDocRequest is the request body for POST /get-doc.
type GetDocRequest struct {
	Assembly string `json:"assembly"`
	DocID    string `json:"doc_id"`
	// Section limits the page to one heading, e.g. "Remarks".
	Section string `json:"section,omitempty"`
}

type GetDocResponse struct {
	Markdown string `json:"markdown"`
}

// ResolveRequest is the request body for POST /resolve.
type ResolveRequest struct {
	Assembly string `json:"assembly"`
	DocID    string `json:"doc_id"`
}

type ResolveResponse struct {
	DocID      string `json:"doc_id"`
	Reason     string `json:"reason"`
	Candidates int    `json:"candidates"`
	Detail     string `json:"detail,omitempty"`
	// Set when the doc-id resolved.
	Canonical     string `json:"canonical,omitempty"`
	Kind          string `json:"kind,omitempty"`
	DeclaringType string `json:"declaring_type,omitempty"`
	URI           string `json:"uri,omitempty"`
}

// ListMembersRequest is the request body for POST /list-members.
type ListMembersRequest struct {
	Assembly string `json:"assembly"`
	Type     string `json:"type,omitempty"`
}

type ListMembersResponse struct {
	Members []MemberInfo `json:"members"`
}

type MemberInfo struct {
	DocID      string `json:"doc_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri"`
	Documented bool   `json:"documented"`
}

// UnresolvedRequest is the request body for POST /unresolved.
type UnresolvedRequest struct {
	Assembly string `json:"assembly"`
	Reason   string `json:"reason,omitempty"`
}

type UnresolvedResponse struct {
	Entries []UnresolvedEntry `json:"entries"`
}

type UnresolvedEntry struct {
	DocID      string `json:"doc_id"`
	Reason     string `json:"reason"`
	Candidates int    `json:"candidates"`
	Detail     string `json:"detail,omitempty"`
}

// RemoveRequest is the request body for POST /remove.
type RemoveRequest struct {
	Assembly string `json:"assembly"`
}

type RemoveResponse struct {
	Removed     bool `json:"removed"`
	PrunedPages int  `json:"pruned_pages"`
}

// PruneResponse is the response body for POST /prune.
type PruneResponse struct {
	PrunedPages int `json:"pruned_pages"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Assemblies []AssemblyStatus `json:"assemblies"`
}

type AssemblyStatus struct {
	Name       string `json:"name"`
	Members    int    `json:"members"`
	Documented int    `json:"documented"`
	Indexed    bool   `json:"indexed"`
}

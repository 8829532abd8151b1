package core

// AddOption is a function type for configuring Add operations.
//
// Options follow the functional options pattern, so callers only set
// what they need.
type AddOption func(*AddOptions)

// AddOptions contains configuration options for Add operations.
type AddOptions struct {
	// UserID identifies the user who owns this memory.
	UserID string

	// AgentID identifies the agent associated with this memory.
	AgentID string

	// RunID identifies the run/session this memory belongs to.
	RunID string

	// Metadata contains additional metadata about the memory.
	Metadata map[string]interface{}

	// Filters provides additional metadata merged into the stored record.
	Filters map[string]interface{}

	// Scope defines the visibility scope of the memory.
	Scope MemoryScope

	// MemoryType categorizes the memory (e.g. "conversation", "fact").
	MemoryType string

	// Prompt overrides the extraction prompt for this call.
	Prompt string

	// Infer routes the content through the intelligent pipeline
	// (extraction, decisions, dedup) instead of storing it verbatim.
	Infer bool
}

// WithUserID sets the user ID for Add operations.
//
// Example:
//
//	memory, _ := client.Add(ctx, "content", core.WithUserID("user_001"))
func WithUserID(userID string) AddOption {
	return func(opts *AddOptions) {
		opts.UserID = userID
	}
}

// WithAgentID sets the agent ID for Add operations.
func WithAgentID(agentID string) AddOption {
	return func(opts *AddOptions) {
		opts.AgentID = agentID
	}
}

// WithRunID sets the run ID for Add operations, grouping related
// memories from one session.
func WithRunID(runID string) AddOption {
	return func(opts *AddOptions) {
		opts.RunID = runID
	}
}

// WithMetadata sets metadata for Add operations.
//
// Example:
//
//	memory, _ := client.Add(ctx, "content",
//	    core.WithMetadata(map[string]interface{}{
//	        "source":   "conversation",
//	        "priority": "high",
//	    }),
//	)
func WithMetadata(metadata map[string]interface{}) AddOption {
	return func(opts *AddOptions) {
		opts.Metadata = metadata
	}
}

// WithFiltersForAdd sets metadata filters for Add operations.
func WithFiltersForAdd(filters map[string]interface{}) AddOption {
	return func(opts *AddOptions) {
		opts.Filters = filters
	}
}

// WithMemoryType sets the memory type for Add operations.
func WithMemoryType(memoryType string) AddOption {
	return func(opts *AddOptions) {
		opts.MemoryType = memoryType
	}
}

// WithPrompt sets a custom extraction prompt for Add operations.
func WithPrompt(prompt string) AddOption {
	return func(opts *AddOptions) {
		opts.Prompt = prompt
	}
}

// WithInfer enables or disables intelligent processing for Add operations.
//
// Example:
//
//	memory, _ := client.Add(ctx, "content", core.WithInfer(true))
func WithInfer(infer bool) AddOption {
	return func(opts *AddOptions) {
		opts.Infer = infer
	}
}

// WithScope sets the memory scope for Add operations.
func WithScope(scope MemoryScope) AddOption {
	return func(opts *AddOptions) {
		opts.Scope = scope
	}
}

// SearchOption is a function type for configuring Search operations.
type SearchOption func(*SearchOptions)

// SearchOptions contains configuration options for Search operations.
type SearchOptions struct {
	// UserID filters results to a specific user.
	UserID string

	// AgentID filters results to a specific agent.
	AgentID string

	// Limit caps the number of results. Default: 10.
	Limit int

	// Filters provides additional metadata filters.
	Filters map[string]interface{}

	// MinScore drops results below this similarity score. Default: 0.0.
	MinScore float64
}

// WithUserIDForSearch sets the user ID for Search operations.
//
// Example:
//
//	results, _ := client.Search(ctx, "query", core.WithUserIDForSearch("user_001"))
func WithUserIDForSearch(userID string) SearchOption {
	return func(opts *SearchOptions) {
		opts.UserID = userID
	}
}

// WithAgentIDForSearch sets the agent ID for Search operations.
func WithAgentIDForSearch(agentID string) SearchOption {
	return func(opts *SearchOptions) {
		opts.AgentID = agentID
	}
}

// WithLimit sets the maximum number of results for Search operations.
func WithLimit(limit int) SearchOption {
	return func(opts *SearchOptions) {
		opts.Limit = limit
	}
}

// WithFilters sets metadata filters for Search operations.
func WithFilters(filters map[string]interface{}) SearchOption {
	return func(opts *SearchOptions) {
		opts.Filters = filters
	}
}

// WithMinScore sets the minimum similarity score for Search results.
//
// Only results with similarity >= score are returned. Typical range
// 0.0-1.0 where 1.0 is identical.
func WithMinScore(score float64) SearchOption {
	return func(opts *SearchOptions) {
		opts.MinScore = score
	}
}

// GetOption is a function type for configuring Get operations.
type GetOption func(*GetOptions)

// GetOptions contains access-control options for Get operations.
type GetOptions struct {
	// UserID restricts access to memories owned by this user.
	UserID string

	// AgentID restricts access to memories owned by this agent.
	AgentID string
}

// WithUserIDForGet sets the user ID for Get operations (access control).
func WithUserIDForGet(userID string) GetOption {
	return func(opts *GetOptions) {
		opts.UserID = userID
	}
}

// WithAgentIDForGet sets the agent ID for Get operations (access control).
func WithAgentIDForGet(agentID string) GetOption {
	return func(opts *GetOptions) {
		opts.AgentID = agentID
	}
}

// UpdateOption is a function type for configuring Update operations.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains access-control options for Update operations.
type UpdateOptions struct {
	// UserID restricts updates to memories owned by this user.
	UserID string

	// AgentID restricts updates to memories owned by this agent.
	AgentID string
}

// WithUserIDForUpdate sets the user ID for Update operations (access control).
func WithUserIDForUpdate(userID string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.UserID = userID
	}
}

// WithAgentIDForUpdate sets the agent ID for Update operations (access control).
func WithAgentIDForUpdate(agentID string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.AgentID = agentID
	}
}

// DeleteOption is a function type for configuring Delete operations.
type DeleteOption func(*DeleteOptions)

// DeleteOptions contains access-control options for Delete operations.
type DeleteOptions struct {
	// UserID restricts deletions to memories owned by this user.
	UserID string

	// AgentID restricts deletions to memories owned by this agent.
	AgentID string
}

// WithUserIDForDelete sets the user ID for Delete operations (access control).
func WithUserIDForDelete(userID string) DeleteOption {
	return func(opts *DeleteOptions) {
		opts.UserID = userID
	}
}

// WithAgentIDForDelete sets the agent ID for Delete operations (access control).
func WithAgentIDForDelete(agentID string) DeleteOption {
	return func(opts *DeleteOptions) {
		opts.AgentID = agentID
	}
}

// GetAllOption is a function type for configuring GetAll operations.
type GetAllOption func(*GetAllOptions)

// GetAllOptions contains configuration options for GetAll operations.
type GetAllOptions struct {
	// UserID filters results to a specific user.
	UserID string

	// AgentID filters results to a specific agent.
	AgentID string

	// Limit caps the number of results. Default: 100.
	Limit int

	// Offset skips results for pagination. Default: 0.
	Offset int
}

// WithUserIDForGetAll sets the user ID for GetAll operations.
func WithUserIDForGetAll(userID string) GetAllOption {
	return func(opts *GetAllOptions) {
		opts.UserID = userID
	}
}

// WithAgentIDForGetAll sets the agent ID for GetAll operations.
func WithAgentIDForGetAll(agentID string) GetAllOption {
	return func(opts *GetAllOptions) {
		opts.AgentID = agentID
	}
}

// WithLimitForGetAll sets the maximum number of results for GetAll operations.
func WithLimitForGetAll(limit int) GetAllOption {
	return func(opts *GetAllOptions) {
		opts.Limit = limit
	}
}

// WithOffset sets the offset for GetAll operations (pagination).
//
// Example:
//
//	// Second page of 50.
//	memories, _ := client.GetAll(ctx,
//	    core.WithLimitForGetAll(50),
//	    core.WithOffset(50),
//	)
func WithOffset(offset int) GetAllOption {
	return func(opts *GetAllOptions) {
		opts.Offset = offset
	}
}

// DeleteAllOption is a function type for configuring DeleteAll operations.
type DeleteAllOption func(*DeleteAllOptions)

// DeleteAllOptions contains configuration options for DeleteAll operations.
type DeleteAllOptions struct {
	// UserID filters deletions to a specific user.
	UserID string

	// AgentID filters deletions to a specific agent.
	AgentID string
}

// WithUserIDForDeleteAll sets the user ID for DeleteAll operations.
func WithUserIDForDeleteAll(userID string) DeleteAllOption {
	return func(opts *DeleteAllOptions) {
		opts.UserID = userID
	}
}

// WithAgentIDForDeleteAll sets the agent ID for DeleteAll operations.
func WithAgentIDForDeleteAll(agentID string) DeleteAllOption {
	return func(opts *DeleteAllOptions) {
		opts.AgentID = agentID
	}
}

// applyAddOptions applies Add options to create AddOptions.
func applyAddOptions(opts []AddOption) *AddOptions {
	options := &AddOptions{
		Scope:    ScopePrivate,
		Metadata: make(map[string]interface{}),
		Filters:  make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applySearchOptions applies Search options to create SearchOptions.
func applySearchOptions(opts []SearchOption) *SearchOptions {
	options := &SearchOptions{
		Limit: 10,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyGetOptions applies Get options to create GetOptions.
func applyGetOptions(opts []GetOption) *GetOptions {
	options := &GetOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyUpdateOptions applies Update options to create UpdateOptions.
func applyUpdateOptions(opts []UpdateOption) *UpdateOptions {
	options := &UpdateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyDeleteOptions applies Delete options to create DeleteOptions.
func applyDeleteOptions(opts []DeleteOption) *DeleteOptions {
	options := &DeleteOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyGetAllOptions applies GetAll options to create GetAllOptions.
func applyGetAllOptions(opts []GetAllOption) *GetAllOptions {
	options := &GetAllOptions{
		Limit: 100,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyDeleteAllOptions applies DeleteAll options to create DeleteAllOptions.
func applyDeleteAllOptions(opts []DeleteAllOption) *DeleteAllOptions {
	options := &DeleteAllOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

package mongo

// ClientOptions configures ConnectWithOptions.
type ClientOptions struct {
	Credential     *Credential `json:"credential,omitempty"`
	AppName        string      `json:"appName,omitempty"`
	ReplicaSet     string      `json:"replicaSet,omitempty"`
	Hosts          []Host      `json:"hosts"`
	MaxPoolSize    uint32      `json:"maxPoolSize,omitempty"`
	MinPoolSize    uint32      `json:"minPoolSize,omitempty"`
	ConnectTimeout int64       `json:"connectTimeoutMS,omitempty"`
	Direct         bool        `json:"directConnection,omitempty"`
}

// Host is a server address.
type Host struct {
	Host string `json:"host"`
	Port uint16 `json:"port,omitempty"`
}

// Credential authenticates the connection.
type Credential struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Source    string `json:"source,omitempty"`
	Mechanism string `json:"mechanism,omitempty"`
}

// FindOptions narrows Find results. Zero values are omitted.
type FindOptions struct {
	Sort       any   `json:"sort,omitempty"`
	Projection any   `json:"projection,omitempty"`
	Skip       int64 `json:"skip,omitempty"`
	Limit      int64 `json:"limit,omitempty"`
}

// IndexModel describes one index for CreateIndexes.
type IndexModel struct {
	Keys    any           `json:"keys"`
	Options *IndexOptions `json:"options,omitempty"`
}

// IndexOptions are the optional index settings.
type IndexOptions struct {
	Name               string `json:"name,omitempty"`
	ExpireAfterSeconds int64  `json:"expireAfterSeconds,omitempty"`
	Unique             bool   `json:"unique,omitempty"`
	Sparse             bool   `json:"sparse,omitempty"`
	Background         bool   `json:"background,omitempty"`
}

// UpdateResult reports the outcome of UpdateOne and UpdateMany.
type UpdateResult struct {
	UpsertedID    any   `json:"upsertedId"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

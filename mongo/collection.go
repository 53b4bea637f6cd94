package mongo

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/wippyai/mongo-bridge/dispatch"
	"github.com/wippyai/mongo-bridge/errors"
)

// Collection runs CRUD, aggregate and index commands against one
// collection. Documents and filters may be any value Convert accepts.
type Collection struct {
	client *Client
	dbName string
	name   string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Database returns the name of the owning database.
func (c *Collection) Database() string {
	return c.dbName
}

type target struct {
	DBName         string `json:"dbName"`
	CollectionName string `json:"collectionName"`
}

func (c *Collection) target() target {
	return target{DBName: c.dbName, CollectionName: c.name}
}

type findPayload struct {
	target
	Filter any `json:"filter,omitempty"`
	FindOptions
	FindOne bool `json:"findOne"`
}

type countPayload struct {
	target
	Filter any `json:"filter,omitempty"`
}

type insertOnePayload struct {
	target
	Doc any `json:"doc"`
}

type insertManyPayload struct {
	target
	Docs any `json:"docs"`
}

type deletePayload struct {
	target
	Query     any  `json:"query"`
	DeleteOne bool `json:"deleteOne"`
}

type updatePayload struct {
	target
	Query     any  `json:"query"`
	Update    any  `json:"update"`
	UpdateOne bool `json:"updateOne"`
}

type aggregatePayload struct {
	target
	Pipeline any `json:"pipeline"`
}

type createIndexesPayload struct {
	target
	Models []IndexModel `json:"models"`
}

func convertArg(name string, v any) (any, error) {
	c, err := Convert(v)
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			e.Path = append([]string{name}, e.Path...)
			return nil, e
		}
		return nil, err
	}
	return c, nil
}

// FindOne returns the first document matching filter, or nil when none
// matches.
func (c *Collection) FindOne(ctx context.Context, filter any) (M, error) {
	data, err := c.find(ctx, filter, nil, true)
	if err != nil {
		return nil, err
	}
	return parseDoc(data)
}

// Find returns all documents matching filter. opts may be nil.
func (c *Collection) Find(ctx context.Context, filter any, opts *FindOptions) ([]M, error) {
	data, err := c.find(ctx, filter, opts, false)
	if err != nil {
		return nil, err
	}
	return parseDocs(data)
}

func (c *Collection) find(ctx context.Context, filter any, opts *FindOptions, one bool) ([]byte, error) {
	f, err := convertArg("filter", filter)
	if err != nil {
		return nil, err
	}
	p := findPayload{target: c.target(), Filter: f, FindOne: one}
	if opts != nil {
		p.FindOptions = *opts
		if p.Sort, err = convertArg("sort", opts.Sort); err != nil {
			return nil, err
		}
	}
	return c.client.call(ctx, dispatch.Find, p)
}

// Count returns the number of documents matching filter.
func (c *Collection) Count(ctx context.Context, filter any) (int64, error) {
	f, err := convertArg("filter", filter)
	if err != nil {
		return 0, err
	}
	data, err := c.client.call(ctx, dispatch.Count, countPayload{target: c.target(), Filter: f})
	if err != nil {
		return 0, err
	}
	return parseCount(data)
}

// InsertOne inserts doc and returns its identifier.
func (c *Collection) InsertOne(ctx context.Context, doc any) (any, error) {
	d, err := convertArg("doc", doc)
	if err != nil {
		return nil, err
	}
	data, err := c.client.call(ctx, dispatch.InsertOne, insertOnePayload{target: c.target(), Doc: d})
	if err != nil {
		return nil, err
	}
	id, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if m, ok := id.(M); ok {
		if inserted, ok := m["insertedId"]; ok && len(m) == 1 {
			return inserted, nil
		}
	}
	return id, nil
}

// InsertMany inserts docs, which must be a slice or array, and returns the
// identifiers in order.
func (c *Collection) InsertMany(ctx context.Context, docs any) ([]any, error) {
	d, err := convertArg("docs", docs)
	if err != nil {
		return nil, err
	}
	if _, ok := d.([]any); !ok {
		return nil, errors.InvalidInput(errors.PhaseValidate, "InsertMany requires a slice of documents")
	}
	data, err := c.client.call(ctx, dispatch.InsertMany, insertManyPayload{target: c.target(), Docs: d})
	if err != nil {
		return nil, err
	}
	return parseList(data)
}

// DeleteOne deletes the first document matching query and returns the
// number deleted.
func (c *Collection) DeleteOne(ctx context.Context, query any) (int64, error) {
	return c.delete(ctx, query, true)
}

// DeleteMany deletes every document matching query.
func (c *Collection) DeleteMany(ctx context.Context, query any) (int64, error) {
	return c.delete(ctx, query, false)
}

func (c *Collection) delete(ctx context.Context, query any, one bool) (int64, error) {
	q, err := convertArg("query", query)
	if err != nil {
		return 0, err
	}
	data, err := c.client.call(ctx, dispatch.Delete, deletePayload{target: c.target(), Query: q, DeleteOne: one})
	if err != nil {
		return 0, err
	}
	return parseCount(data)
}

// UpdateOne applies update to the first document matching query.
func (c *Collection) UpdateOne(ctx context.Context, query, update any) (UpdateResult, error) {
	return c.update(ctx, query, update, true)
}

// UpdateMany applies update to every document matching query.
func (c *Collection) UpdateMany(ctx context.Context, query, update any) (UpdateResult, error) {
	return c.update(ctx, query, update, false)
}

func (c *Collection) update(ctx context.Context, query, update any, one bool) (UpdateResult, error) {
	q, err := convertArg("query", query)
	if err != nil {
		return UpdateResult{}, err
	}
	u, err := convertArg("update", update)
	if err != nil {
		return UpdateResult{}, err
	}
	data, err := c.client.call(ctx, dispatch.Update, updatePayload{
		target:    c.target(),
		Query:     q,
		Update:    u,
		UpdateOne: one,
	})
	if err != nil {
		return UpdateResult{}, err
	}

	var raw struct {
		UpsertedID    json.RawMessage `json:"upsertedId"`
		MatchedCount  int64           `json:"matchedCount"`
		ModifiedCount int64           `json:"modifiedCount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return UpdateResult{}, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decode update result")
	}
	res := UpdateResult{MatchedCount: raw.MatchedCount, ModifiedCount: raw.ModifiedCount}
	if len(raw.UpsertedID) > 0 {
		if res.UpsertedID, err = Parse(raw.UpsertedID); err != nil {
			return UpdateResult{}, err
		}
	}
	return res, nil
}

// Aggregate runs pipeline and returns the resulting documents.
func (c *Collection) Aggregate(ctx context.Context, pipeline any) ([]M, error) {
	p, err := convertArg("pipeline", pipeline)
	if err != nil {
		return nil, err
	}
	data, err := c.client.call(ctx, dispatch.Aggregate, aggregatePayload{target: c.target(), Pipeline: p})
	if err != nil {
		return nil, err
	}
	return parseDocs(data)
}

// CreateIndexes creates the given indexes and returns their names.
func (c *Collection) CreateIndexes(ctx context.Context, models []IndexModel) ([]string, error) {
	if len(models) == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "CreateIndexes requires at least one model")
	}
	data, err := c.client.call(ctx, dispatch.CreateIndexes, createIndexesPayload{target: c.target(), Models: models})
	if err != nil {
		return nil, err
	}
	return parseNames(data)
}

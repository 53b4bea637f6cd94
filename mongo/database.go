package mongo

import (
	"context"

	"github.com/wippyai/mongo-bridge/dispatch"
)

// Database names a database on a client connection.
type Database struct {
	client *Client
	name   string
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.name
}

// Client returns the owning client.
func (d *Database) Client() *Client {
	return d.client
}

// ListCollectionNames returns the names of the database's collections.
func (d *Database) ListCollectionNames(ctx context.Context) ([]string, error) {
	data, err := d.client.call(ctx, dispatch.ListCollectionNames, []byte(d.name))
	if err != nil {
		return nil, err
	}
	return parseNames(data)
}

// Collection returns a handle to the named collection. No command is sent.
func (d *Database) Collection(name string) *Collection {
	return &Collection{client: d.client, dbName: d.name, name: name}
}

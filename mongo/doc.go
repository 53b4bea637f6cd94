// Package mongo is the document-oriented facade over the dispatch core.
//
// A Client holds the connection identifier returned by the engine; Database
// and Collection are naming handles that carry no state of their own:
//
//	client := mongo.NewClient(core)
//	if err := client.ConnectWithURI("mongodb://localhost:27017"); err != nil {
//		return err
//	}
//	users := client.Database("app").Collection("users")
//
//	id, err := users.InsertOne(ctx, mongo.M{"name": "ada", "joined": time.Now()})
//	docs, err := users.Find(ctx, mongo.M{"name": "ada"}, &mongo.FindOptions{Limit: 10})
//
// Connecting is synchronous. Every other operation is dispatched
// asynchronously and waits for its completion; ctx bounds only the wait.
//
// # Values
//
// Arguments pass through Convert before encoding: time.Time values become
// {"$date": {"$numberLong": ms}} and ObjectID values {"$oid": hex}. Results
// pass through Parse, which maps those shapes back and decodes integers as
// int64. Decode copies a parsed document into a struct.
//
// # Errors
//
// A completion whose payload is {"$error": ...} fails only the command it
// answers, with an error matching errors.ErrNativeCommand.
package mongo

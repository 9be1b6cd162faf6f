// Package storage persists events.
//
// Two Store implementations exist. MongoStore writes to the "events"
// collection of a MongoDB database and is selected by a mongodb:// or
// mongodb+srv:// URI. FileStore keeps a JSON snapshot (events.json) in a
// local directory, selected by a file:// URI, and is meant for local runs
// and tests. Both enforce uniqueness on id and on the (title, startDate)
// pair; the scrape pipeline only ever inserts.
package storage

// Package docstore is the boundary to the document database holding users and posts.
//
// A [Store] stores schemaless documents grouped in collections. Field updates
// ([Increment], [ArrayUnion], [ArrayRemove], [Set]) passed to a single [Store.Update] call
// are applied atomically. [ServerTimestamp] is replaced with the backend's clock on write.
//
// Backends:
//   - [SQLiteStore] : JSON documents in a local sqlite table (default)
//   - [FirestoreStore] : Cloud Firestore
//
// [Ref]: https://firebase.google.com/docs/firestore/manage-data/add-data
package docstore

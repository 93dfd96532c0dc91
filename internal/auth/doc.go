// Package auth is the session boundary between the client and its identity backend.
//
// [Provider] mirrors the shape of a hosted auth SDK: a current user, a session listener,
// sign-in, logout and profile updates. [Session] implements it on top of the user
// repository. Credentials are resolved by a [Verifier]:
//   - [DirectoryVerifier] : a user id or email already present in the users collection
//   - [FirebaseVerifier] : a Firebase ID token, verified with the Admin SDK
//
// [GoogleClientOptions] builds the client options shared by every Google backend.
package auth

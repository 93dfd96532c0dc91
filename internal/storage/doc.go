// Package storage uploads user images and resolves their public URLs.
//
// Backends implement [ObjectStore]:
//   - [LocalStore] : files under a directory, served as file:// URLs
//   - [GCSStore] : Google Cloud Storage (the Firebase Storage bucket)
//   - [S3Store] : any S3-compatible service
//
// Images are re-encoded by [NormalizeImage] before upload.
package storage

// Package uploader pushes approved videos to S3-compatible object storage
// when a listing is published. Storage is optional: with no endpoint
// configured the publish operation records the local file path instead.
package uploader

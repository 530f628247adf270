// Package s3input extracts the S3-semantic content of an inbound HTTP
// request — bucket, key, and the kind of operation being requested —
// once the request has already been normalized to virtual-hosted style.
package s3input

// ActionKind classifies the S3 operation a request represents. It is
// coarser than the full S3 action list: it carries exactly the
// distinctions the identity resolver and policy engine need to make
// routing and access decisions.
type ActionKind string

const (
	ListBuckets             ActionKind = "ListBuckets"
	HeadBucket              ActionKind = "HeadBucket"
	CreateBucket            ActionKind = "CreateBucket"
	DeleteBucket            ActionKind = "DeleteBucket"
	ListObjects             ActionKind = "ListObjects"
	GetBucketSubresource    ActionKind = "GetBucketSubresource"
	PutBucketSubresource    ActionKind = "PutBucketSubresource"
	DeleteBucketSubresource ActionKind = "DeleteBucketSubresource"
	GetObject               ActionKind = "GetObject"
	HeadObject              ActionKind = "HeadObject"
	PutObject               ActionKind = "PutObject"
	DeleteObject            ActionKind = "DeleteObject"
	GetObjectSubresource    ActionKind = "GetObjectSubresource"
	PutObjectSubresource    ActionKind = "PutObjectSubresource"
	MultipartCreate         ActionKind = "MultipartCreate"
	MultipartUploadPart     ActionKind = "MultipartUploadPart"
	MultipartComplete       ActionKind = "MultipartComplete"
	MultipartAbort          ActionKind = "MultipartAbort"
	MultipartList           ActionKind = "MultipartList"
)

// Input is the parsed, S3-semantic view of one request. Bucket is nil
// only for ListBuckets; Key is nil for bucket-level operations.
type Input struct {
	Bucket      *string
	Key         *string
	Action      ActionKind
	SubResource string
}

// BucketOrEmpty returns the bucket name, or "" if this is a
// ListBuckets request (the only action kind allowed to have none).
func (in Input) BucketOrEmpty() string {
	if in.Bucket == nil {
		return ""
	}
	return *in.Bucket
}

package config

const (
	// TopicVectorUpload is the NSQ topic carrying embedded batches ready for upload.
	TopicVectorUpload = "vector.upload"

	// ChannelUploader is the NSQ channel the upload workers share.
	ChannelUploader = "uploader"
)

package s3

// Config holds S3 configuration
type Config struct {
	Endpoint        string `json:"endpoint"`          // Optional: for MinIO, LocalStack and other S3-compatible stores
	Region          string `json:"region"`            // AWS region
	Bucket          string `json:"bucket"`            // S3 bucket name
	AccessKeyID     string `json:"access_key_id"`     // Optional: falls back to the default credential chain
	SecretAccessKey string `json:"secret_access_key"` // Paired with AccessKeyID
	ForcePathStyle  bool   `json:"force_path_style"`  // For MinIO
}

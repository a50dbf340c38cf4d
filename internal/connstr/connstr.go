// Package connstr parses the storage connection string that carries the
// backend, endpoint and credentials for a run.
//
// A connection string is a semicolon separated list of Key=Value pairs:
//
//	Backend=s3;Region=eu-west-1;AccessKeyId=AKIA...;SecretAccessKey=...
//	Backend=minio;Endpoint=localhost:9000;AccessKeyId=minio;SecretAccessKey=minio123;UseSSL=false
//
// Keys are case-insensitive. Unknown keys are rejected.
package connstr

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/input-output-hk/blobperf/errors"
)

// EnvVar is the environment variable holding the connection string.
const EnvVar = "storageconnectionstring"

// MissingMessage is reported when EnvVar is unset.
const MissingMessage = "a connection string has not been defined in the system environment variables; " +
	"add an environment variable named '" + EnvVar + "' with your storage connection string as a value"

// Backend names a store implementation.
type Backend string

const (
	// BackendS3 talks to S3 (or any S3 endpoint) through the AWS SDK
	BackendS3 Backend = "s3"

	// BackendMinio talks to an S3-compatible server through minio-go
	BackendMinio Backend = "minio"
)

// Settings is a parsed connection string.
type Settings struct {
	Backend         Backend
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool
	UseSSL          bool
}

// HasStaticCredentials reports whether an access key pair was supplied.
func (s Settings) HasStaticCredentials() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// FromEnv reads and parses EnvVar.
func FromEnv() (Settings, error) {
	raw, ok := os.LookupEnv(EnvVar)
	if !ok || strings.TrimSpace(raw) == "" {
		return Settings{}, errors.NewKindError("connectionString", errors.KindConfig, errors.ErrMissingCredential).
			WithMessage(MissingMessage)
	}
	return Parse(raw)
}

// Parse parses a connection string. The backend defaults to s3 and UseSSL to true.
func Parse(raw string) (Settings, error) {
	s := Settings{Backend: BackendS3, UseSSL: true}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Settings{}, invalid("connection string is empty")
	}

	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, found := strings.Cut(pair, "=")
		if !found {
			return Settings{}, invalid(fmt.Sprintf("segment %q is not a Key=Value pair", pair))
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "backend":
			switch Backend(strings.ToLower(value)) {
			case BackendS3:
				s.Backend = BackendS3
			case BackendMinio:
				s.Backend = BackendMinio
			default:
				return Settings{}, invalid(fmt.Sprintf("unknown backend %q", value))
			}
		case "endpoint":
			s.Endpoint = value
		case "region":
			s.Region = value
		case "accesskeyid":
			s.AccessKeyID = value
		case "secretaccesskey":
			s.SecretAccessKey = value
		case "sessiontoken":
			s.SessionToken = value
		case "forcepathstyle":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Settings{}, invalid(fmt.Sprintf("ForcePathStyle: %v", err))
			}
			s.ForcePathStyle = b
		case "usessl":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Settings{}, invalid(fmt.Sprintf("UseSSL: %v", err))
			}
			s.UseSSL = b
		default:
			return Settings{}, invalid(fmt.Sprintf("unknown key %q", key))
		}
	}

	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		return Settings{}, invalid("AccessKeyId and SecretAccessKey must be given together")
	}
	if s.Backend == BackendMinio {
		if s.Endpoint == "" {
			return Settings{}, invalid("the minio backend requires an Endpoint")
		}
		if !s.HasStaticCredentials() {
			return Settings{}, invalid("the minio backend requires AccessKeyId and SecretAccessKey")
		}
	}

	return s, nil
}

func invalid(msg string) error {
	return errors.NewKindError("connectionString", errors.KindConfig, errors.ErrInvalidConnectionString).
		WithMessage(msg)
}

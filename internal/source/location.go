// Package source fetches semantic model documents from the local filesystem or
// from object storage.
package source

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme identifies where a document lives.
type Scheme string

// Supported schemes.
const (
	SchemeFile  Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeGCS   Scheme = "gs"
	SchemeAzure Scheme = "az"
)

// Location is a parsed document address.
type Location struct {
	Scheme Scheme
	Bucket string // bucket or container; empty for files
	Key    string // object key, or the filesystem path for files
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// ParseLocation classifies raw. Anything without "://" is a filesystem path.
func ParseLocation(raw string) (Location, error) {
	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Key: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", raw, err)
	}
	switch u.Scheme {
	case "file":
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case "s3", "gs":
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("%s location %q needs a bucket and a key", u.Scheme, raw)
		}
		return Location{Scheme: Scheme(u.Scheme), Bucket: bucket, Key: key}, nil
	case "az", "abfss", "https":
		container, key, err := parseAzurePath(u, raw)
		if err != nil {
			return Location{}, err
		}
		return Location{Scheme: SchemeAzure, Bucket: container, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("unsupported location scheme %q in %q", u.Scheme, raw)
	}
}

// parseAzurePath extracts container and key from one of:
//
//	abfss://container@account.dfs.core.windows.net/path/to/file
//	az://container/path/to/file
//	https://account.blob.core.windows.net/container/path/to/file
func parseAzurePath(u *url.URL, raw string) (container, key string, err error) {
	switch u.Scheme {
	case "abfss":
		// url.Parse puts the container in userinfo.
		if u.User == nil {
			return "", "", fmt.Errorf("abfss location %q missing container@account component", raw)
		}
		container = u.User.Username()
		key = strings.TrimPrefix(u.Path, "/")
	case "az":
		container = u.Host
		key = strings.TrimPrefix(u.Path, "/")
	case "https":
		if !strings.Contains(u.Host, ".blob.core.windows.net") {
			return "", "", fmt.Errorf("unrecognized Azure HTTPS host %q in %q", u.Host, raw)
		}
		container, key, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	}

	if container == "" || key == "" {
		return "", "", fmt.Errorf("azure location %q needs a container and a key", raw)
	}
	return container, key, nil
}

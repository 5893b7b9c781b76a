package config

import (
	"encoding/base64"
	"fmt"
)

type Config struct {
	ServerAddr     string
	MongoURI       string
	MongoDatabase  string
	SigningKey     []byte
	AllowedOrigins []string
	// FCMCredentialsFile is the path to a service account key file. Push
	// notifications are disabled when empty.
	FCMCredentialsFile string
	// MediaBucket is the S3 bucket holding chat images. Media purge is
	// disabled when empty.
	MediaBucket string
	MediaRegion string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, mongoURI, mongoDatabase, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if mongoURI == "" {
		return nil, fmt.Errorf("mongo URI cannot be empty")
	}
	if mongoDatabase == "" {
		return nil, fmt.Errorf("mongo database cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		MongoURI:       mongoURI,
		MongoDatabase:  mongoDatabase,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
	}, nil
}

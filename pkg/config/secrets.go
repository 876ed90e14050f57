package config

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretManager reads the latest version of secrets in one GCP project.
type SecretManager struct {
	client  *secretmanager.Client
	project string
}

func NewSecretManager(ctx context.Context, project, credentialsFile string) (*SecretManager, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &SecretManager{client: client, project: project}, nil
}

func (s *SecretManager) Secret(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret: %w", err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (s *SecretManager) Close() error {
	return s.client.Close()
}

package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/docker/docker/api/types/image"
	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	dockerConfigTypes "github.com/docker/cli/cli/config/types"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
)

var (
	// errUnsetRegAuthVars indicates REPO_USER/REPO_PASS are not both set.
	errUnsetRegAuthVars = errors.New(
		"registry auth environment variables (REPO_USER, REPO_PASS) not set",
	)
	// errFailedGetRegistryAddress indicates the registry host of an image could not be derived.
	errFailedGetRegistryAddress = errors.New("failed to get registry address")
	// errFailedLoadDockerConfig indicates the docker CLI config could not be read.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
	// errFailedMarshalAuthConfig indicates credentials could not be encoded.
	errFailedMarshalAuthConfig = errors.New("failed to marshal auth config to JSON")
)

// EnvCredentials returns credentials from REPO_USER and REPO_PASS.
func EnvCredentials() (dockerConfigTypes.AuthConfig, error) {
	username := os.Getenv("REPO_USER")
	password := os.Getenv("REPO_PASS")

	if username == "" || password == "" {
		return dockerConfigTypes.AuthConfig{}, errUnsetRegAuthVars
	}

	logrus.WithField("username", username).Debug("Loaded auth credentials from environment")

	return dockerConfigTypes.AuthConfig{
		Username: username,
		Password: password,
	}, nil
}

// ConfigCredentials looks up credentials for a registry host in the docker CLI config,
// honouring DOCKER_CONFIG and configured credential helpers.
func ConfigCredentials(registry string) (dockerConfigTypes.AuthConfig, error) {
	configDir := os.Getenv("DOCKER_CONFIG")
	if configDir == "" {
		configDir = dockerCliConfig.Dir()
	}

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		logrus.WithError(err).
			WithField("config_dir", configDir).
			Debug("Failed to load Docker config")

		return dockerConfigTypes.AuthConfig{}, fmt.Errorf("%w: %w", errFailedLoadDockerConfig, err)
	}

	server := helpers.CredentialHost(registry)

	auth, _ := CredentialsStore(*configFile).Get(server)
	if auth == (dockerConfigTypes.AuthConfig{}) {
		logrus.WithFields(logrus.Fields{
			"server":      server,
			"config_file": configFile.Filename,
		}).Debug("No credentials found in config")

		return auth, nil
	}

	logrus.WithFields(logrus.Fields{
		"username":    auth.Username,
		"server":      server,
		"config_file": configFile.Filename,
	}).Debug("Loaded auth credentials from config")

	return auth, nil
}

// Credentials resolves credentials for a registry host, preferring the environment
// over the docker CLI config.
func Credentials(registry string) (dockerConfigTypes.AuthConfig, bool) {
	if auth, err := EnvCredentials(); err == nil {
		return auth, true
	}

	auth, err := ConfigCredentials(registry)
	if err != nil || auth.Username == "" {
		return dockerConfigTypes.AuthConfig{}, false
	}

	return auth, true
}

// BasicCredentials adapts Credentials to the token request credential hook.
func BasicCredentials(registry string) (string, string, bool) {
	auth, found := Credentials(registry)
	if !found {
		return "", "", false
	}

	return auth.Username, auth.Password, true
}

// CredentialsStore returns the native store named in the config, or the file store.
func CredentialsStore(configFile dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(&configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(&configFile)
}

// EncodedAuth returns base64url-encoded credentials for pulling imageRef, or an empty
// string when none are configured.
func EncodedAuth(imageRef string) (string, error) {
	server, err := helpers.GetRegistryAddress(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedGetRegistryAddress, err)
	}

	auth, found := Credentials(server)
	if !found {
		return "", nil
	}

	return EncodeAuth(auth)
}

// EncodeAuth serialises credentials in the form the Engine API expects.
func EncodeAuth(authConfig dockerConfigTypes.AuthConfig) (string, error) {
	buf, err := json.Marshal(authConfig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedMarshalAuthConfig, err)
	}

	return base64.URLEncoding.EncodeToString(buf), nil
}

// GetPullOptions builds image pull options carrying registry credentials when known.
func GetPullOptions(imageName string) (image.PullOptions, error) {
	encoded, err := EncodedAuth(imageName)
	if err != nil {
		return image.PullOptions{}, err
	}

	if encoded == "" {
		logrus.WithField("image", imageName).Debug("No authentication credentials found")

		return image.PullOptions{}, nil
	}

	return image.PullOptions{RegistryAuth: encoded}, nil
}

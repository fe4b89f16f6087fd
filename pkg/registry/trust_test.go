package registry

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	dockerConfigTypes "github.com/docker/cli/cli/config/types"
)

var _ = ginkgo.Describe("Registry credential helpers", func() {
	ginkgo.AfterEach(func() {
		_ = os.Unsetenv("REPO_USER")
		_ = os.Unsetenv("REPO_PASS")
		_ = os.Unsetenv("DOCKER_CONFIG")
	})

	ginkgo.Describe("EnvCredentials", func() {
		ginkgo.It("should return repo credentials from env when set", func() {
			gomega.Expect(os.Setenv("REPO_USER", "tagwatch-user")).To(gomega.Succeed())
			gomega.Expect(os.Setenv("REPO_PASS", "tagwatch-pass")).To(gomega.Succeed())

			auth, err := EnvCredentials()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(auth.Username).To(gomega.Equal("tagwatch-user"))
			gomega.Expect(auth.Password).To(gomega.Equal("tagwatch-pass"))
		})

		ginkgo.It("should return an error if repo envs are unset", func() {
			_, err := EnvCredentials()
			gomega.Expect(err).To(gomega.MatchError(errUnsetRegAuthVars))
		})
	})

	ginkgo.Describe("ConfigCredentials", func() {
		ginkgo.It("should read credentials stored for the registry host", func() {
			dir := ginkgo.GinkgoT().TempDir()
			encoded := base64.StdEncoding.EncodeToString([]byte("cfg-user:cfg-pass"))
			config := `{"auths":{"ghcr.io":{"auth":"` + encoded + `"}}}`
			gomega.Expect(os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o600)).To(gomega.Succeed())
			gomega.Expect(os.Setenv("DOCKER_CONFIG", dir)).To(gomega.Succeed())

			username, password, found := BasicCredentials("ghcr.io")
			gomega.Expect(found).To(gomega.BeTrue())
			gomega.Expect(username).To(gomega.Equal("cfg-user"))
			gomega.Expect(password).To(gomega.Equal("cfg-pass"))

			_, _, found = BasicCredentials("quay.io")
			gomega.Expect(found).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("EncodeAuth", func() {
		ginkgo.It("should produce base64url JSON", func() {
			encoded, err := EncodeAuth(dockerConfigTypes.AuthConfig{Username: "u", Password: "p"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			raw, err := base64.URLEncoding.DecodeString(encoded)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			var decoded map[string]any
			gomega.Expect(json.Unmarshal(raw, &decoded)).To(gomega.Succeed())
			gomega.Expect(decoded).To(gomega.HaveKeyWithValue("username", "u"))
			gomega.Expect(decoded).To(gomega.HaveKeyWithValue("password", "p"))
		})
	})

	ginkgo.Describe("GetPullOptions", func() {
		ginkgo.It("should carry env credentials", func() {
			gomega.Expect(os.Setenv("REPO_USER", "u")).To(gomega.Succeed())
			gomega.Expect(os.Setenv("REPO_PASS", "p")).To(gomega.Succeed())

			opts, err := GetPullOptions("ghcr.io/org/app")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(opts.RegistryAuth).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("should be empty without credentials", func() {
			gomega.Expect(os.Setenv("DOCKER_CONFIG", ginkgo.GinkgoT().TempDir())).To(gomega.Succeed())

			opts, err := GetPullOptions("ghcr.io/org/app")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(opts.RegistryAuth).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("nextLink", func() {
		ginkgo.It("should resolve relative next links", func() {
			gomega.Expect(nextLink(
				"https://r.io/v2/a/b/tags/list",
				`</v2/a/b/tags/list?last=x&n=100>; rel="next"`,
			)).To(gomega.Equal("https://r.io/v2/a/b/tags/list?last=x&n=100"))
			gomega.Expect(nextLink("https://r.io/v2/a/b/tags/list", "")).To(gomega.BeEmpty())
		})
	})
})

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomp11/sb-stamp-manager/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.Storage.SQLitePath).To(Equal(defaults.Storage.SQLitePath))
			Expect(cfg.Remote.PostgresDSN).To(BeEmpty())
			Expect(cfg.Extraction.Provider).To(Equal(defaults.Extraction.Provider))
			Expect(cfg.Extraction.Model).To(Equal(defaults.Extraction.Model))
			Expect(cfg.API.Listen).To(Equal(defaults.API.Listen))
			Expect(cfg.Sync.DebounceMS).To(Equal(defaults.Sync.DebounceMS))
			Expect(cfg.Sync.BatchSize).To(Equal(defaults.Sync.BatchSize))
		})

		It("loads a valid config file and fills gaps with defaults", func() {
			data := `version = 0

[storage]
sqlite_path = "/var/lib/stamps/cache.db"

[remote]
postgres_dsn = "postgres://stamps@localhost/stamps"

[sync]
debounce_ms = 500
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.SQLitePath).To(Equal("/var/lib/stamps/cache.db"))
			Expect(cfg.Remote.PostgresDSN).To(Equal("postgres://stamps@localhost/stamps"))
			Expect(cfg.Sync.DebounceMS).To(Equal(uint(500)))

			// Unset fields come from defaults.
			defaults := config.NewDefaultConfig()
			Expect(cfg.Extraction.Provider).To(Equal(defaults.Extraction.Provider))
			Expect(cfg.Sync.BatchSize).To(Equal(defaults.Sync.BatchSize))
		})

		It("rejects an unsupported config version", func() {
			_, err := config.ParseConfigTOML([]byte("version = 99\n"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips the config through disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Remote.PostgresDSN = "postgres://stamps@db/stamps"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Remote.PostgresDSN).To(Equal("postgres://stamps@db/stamps"))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("config keys", func() {
		It("sets and gets values by dotted key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("api.listen", ":9000")).To(Succeed())
			got, err := c.GetConfigValue("api.listen")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(":9000"))

			Expect(c.SetConfigValue("sync.batch_size", "100")).To(Succeed())
			got, err = c.GetConfigValue("sync.batch_size")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("100"))
		})

		It("rejects unknown keys and non-numeric sync values", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("nope.nope", "x")).To(HaveOccurred())
			Expect(c.SetConfigValue("sync.debounce_ms", "soon")).To(HaveOccurred())

			_, err = c.GetConfigValue("nope.nope")
			Expect(err).To(HaveOccurred())
		})

		It("lists every supported key", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"storage.sqlite_path",
				"remote.postgres_dsn",
				"extraction.provider",
				"api.listen",
				"sync.debounce_ms",
			))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})

	Describe("InitViper", func() {
		It("resolves values with env over file over default", func() {
			data := "[api]\nlisten = \":7000\"\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("api.listen")).To(Equal(":7000"))

			os.Setenv("STAMPS_API_LISTEN", ":7001")
			defer os.Unsetenv("STAMPS_API_LISTEN")

			v, err = config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("api.listen")).To(Equal(":7001"))

			// Untouched keys fall through to defaults.
			Expect(v.GetUint("sync.batch_size")).To(Equal(config.NewDefaultConfig().Sync.BatchSize))
		})
	})
})

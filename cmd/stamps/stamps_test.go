package stampscmder_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stampscmder "github.com/tomp11/sb-stamp-manager/cmd/stamps"
)

func TestStampsCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Stamps Command Suite")
}

var _ = Describe("NewStampsCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := stampscmder.NewStampsCmd()
		Expect(cmd.Use).To(Equal("stamps"))
	})

	It("registers all subcommands", func() {
		cmd := stampscmder.NewStampsCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements(
			"ingest", "list", "remove", "sync", "login",
			"auth", "config", "serve", "version",
		))
	})

	It("exposes the global debug and config-dir flags", func() {
		cmd := stampscmder.NewStampsCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

package e2e_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"time"

	"amoebius/internal/fleet"
	"amoebius/internal/ssh"
	"amoebius/internal/state"
	"amoebius/internal/vault"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Run State Persistence", func() {
	var (
		cloud     *fakeCloud
		kv        *kvServer
		srv       *httptest.Server
		statePath string
		ctx       context.Context
	)

	buildDeployer := func(store state.Store) *fleet.Deployer {
		secrets := vault.NewClient(vault.Config{
			Addr:      srv.URL,
			Token:     "e2e-token",
			Mount:     "secret",
			VerifyTLS: true,
		})
		return fleet.NewDeployer(cloud, secrets, store, fleet.BuiltinDefaults(), fleet.Options{
			ProviderName:        "aws",
			SSHUser:             "amoebius",
			ReachabilityTimeout: time.Second,
			MaxWorkers:          2,
			Role:                "amoebius-ssh",
			PathPrefix:          "amoebius/ssh",
			WaitReachable: func(ctx context.Context, host string, port int, timeout time.Duration) error {
				return nil
			},
			IssueKey: func() (*ssh.KeyPair, error) {
				return testKeyIssuer()
			},
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		cloud = newFakeCloud()
		kv = newKVServer()
		srv = httptest.NewServer(kv.handler())
		DeferCleanup(srv.Close)
		statePath = filepath.Join(GinkgoT().TempDir(), "state.json")
	})

	It("tears down a fleet deployed by an earlier process", func() {
		manifest := &fleet.Manifest{
			Groups: []fleet.InstanceGroup{
				{Name: "web", Category: "x86_small", CountPerZone: 2},
			},
			Zones: []string{"us-east-1a"},
			Network: fleet.NetworkRefs{
				SecurityGroup: "sg-ssh",
				Subnets:       map[string]string{"us-east-1a": "subnet-a"},
			},
		}

		deployer := buildDeployer(state.NewFileStore(statePath))
		_, err := deployer.Deploy(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(cloud.liveCount()).To(Equal(2))
		Expect(kv.count()).To(Equal(2))

		// A fresh deployer over the same state file sees the live fleet.
		later := buildDeployer(state.NewFileStore(statePath))
		grouped, err := later.Status(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(grouped["web"]).To(HaveLen(2))

		Expect(later.Teardown(ctx)).To(Succeed())
		Expect(cloud.liveCount()).To(BeZero())
		Expect(kv.count()).To(BeZero())
	})

	It("persists the exact secret path for each instance", func() {
		manifest := &fleet.Manifest{
			Groups: []fleet.InstanceGroup{
				{Name: "db", Category: "x86_large", CountPerZone: 1},
			},
			Zones: []string{"us-east-1a"},
			Network: fleet.NetworkRefs{
				SecurityGroup: "sg-ssh",
				Subnets:       map[string]string{"us-east-1a": "subnet-a"},
			},
		}

		deployer := buildDeployer(state.NewFileStore(statePath))
		grouped, err := deployer.Deploy(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())

		reopened := state.NewFileStore(statePath)
		rec, ok, err := reopened.Get(ctx, grouped["db"][0].Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(rec.SecretPath).To(Equal(grouped["db"][0].SecretPath))
	})
})

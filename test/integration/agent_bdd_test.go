//go:build integration

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/infra"
	"github.com/eliteGoblin/focusd/act_mon/test/fixtures"
)

// readEventTypes returns the "type" of every line in today's event log.
func readEventTypes(dataDir string) []string {
	f, err := os.Open(filepath.Join(infra.LogDir(dataDir), infra.LogFileName(time.Now())))
	if err != nil {
		return nil
	}
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line struct {
			Type string `json:"type"`
		}
		Expect(json.Unmarshal(sc.Bytes(), &line)).To(Succeed())
		types = append(types, line.Type)
	}
	return types
}

var _ = Describe("Monitoring agent", func() {
	var (
		tmpDir     string
		configPath string
		store      *config.Store
		holder     *config.Holder
		window     *fixtures.ScriptedWindow
		audit      *infra.AuditStore
		agent      *daemon.Agent
		cancel     context.CancelFunc
		done       chan error
	)

	startAgent := func(cfg *domain.Config) {
		Expect(store.Save(configPath, cfg)).To(Succeed())
		loaded, path, err := store.LoadOrInit()
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(configPath))
		holder = config.NewHolder(loaded)

		sink, err := infra.NewJSONLSink(loaded.DataDirectory)
		Expect(err).NotTo(HaveOccurred())

		audit, err = infra.OpenAuditStore(loaded.DataDirectory)
		Expect(err).NotTo(HaveOccurred())

		agentCfg := daemon.DefaultAgentConfig()
		agentCfg.PollInterval = 50 * time.Millisecond

		logger := zap.NewNop()
		agent = daemon.NewAgent(agentCfg, daemon.AgentDeps{
			Store:          store,
			Holder:         holder,
			ConfigPath:     configPath,
			Sink:           sink,
			Rotator:        sink,
			Inspector:      window,
			ProcessManager: infra.NewProcessManager(),
			Notifier:       infra.NewLogNotifier(logger),
			Recorder:       audit,
			Logger:         logger,
		})

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- agent.Run(ctx) }()
	}

	stopAgent := func() {
		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "actmon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		configPath = filepath.Join(tmpDir, "config.json")
		store = config.NewStoreWithCandidates(filepath.Join(tmpDir, "data"), configPath)
		window = fixtures.NewScriptedWindow()
	})

	AfterEach(func() {
		if audit != nil {
			audit.Close()
			audit = nil
		}
		os.RemoveAll(tmpDir)
	})

	Describe("blocked process in the foreground", func() {
		Context("with a one second warning", func() {
			It("should terminate it exactly once and record the actions", func() {
				sleeper, err := fixtures.StartSleeper(30)
				Expect(err).NotTo(HaveOccurred())
				defer sleeper.Kill()

				cfg := config.Default()
				cfg.BlockedProcesses = []string{"sleep"}
				cfg.BlockCloseWarningSeconds = 1
				startAgent(cfg)

				window.Focus(42, "Sleeping", sleeper.PID(), "sleep")

				Eventually(sleeper.Exited, 5*time.Second, 50*time.Millisecond).Should(BeTrue())
				Consistently(func() int { return agent.Enforcer().PendingCount() }, 300*time.Millisecond).Should(Equal(0))

				stopAgent()

				records, err := audit.Recent(10)
				Expect(err).NotTo(HaveOccurred())

				var warned, terminated int
				for _, rec := range records {
					switch rec.Action {
					case domain.ActionWarned:
						warned++
					case domain.ActionTerminated:
						terminated++
					}
				}
				Expect(warned).To(Equal(1))
				Expect(terminated).To(Equal(1))

				Expect(readEventTypes(holder.Current().DataDirectory)).To(ContainElement("ActiveWindow"))
			})
		})

		Context("when the agent stops during the warning", func() {
			It("should leave the process running", func() {
				sleeper, err := fixtures.StartSleeper(30)
				Expect(err).NotTo(HaveOccurred())
				defer sleeper.Kill()

				cfg := config.Default()
				cfg.BlockedProcesses = []string{"sleep"}
				cfg.BlockCloseWarningSeconds = 60
				startAgent(cfg)

				window.Focus(7, "Sleeping", sleeper.PID(), "sleep")
				Eventually(func() bool { return agent.Enforcer().HasPending(sleeper.PID()) }, 3*time.Second).Should(BeTrue())

				stopAgent()
				Consistently(sleeper.Exited, 300*time.Millisecond).Should(BeFalse())
			})
		})
	})

	Describe("configuration hot-reload", func() {
		It("should apply a valid change and keep it when the file turns malformed", func() {
			startAgent(config.Default())
			defer stopAgent()

			next := config.Default()
			next.BlockedProcesses = []string{"minecraft"}
			Expect(store.Save(configPath, next)).To(Succeed())

			Eventually(func() []string { return holder.Current().BlockedProcesses }, 3*time.Second, 20*time.Millisecond).
				Should(Equal([]string{"minecraft"}))

			// Past the debounce window
			time.Sleep(700 * time.Millisecond)
			Expect(os.WriteFile(configPath, []byte(`{"blockedProcesses": [`), 0600)).To(Succeed())

			Consistently(func() []string { return holder.Current().BlockedProcesses }, time.Second, 50*time.Millisecond).
				Should(Equal([]string{"minecraft"}))
		})
	})
})

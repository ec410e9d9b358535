// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tooldeck/tooldeck/internal/plugin"
	"github.com/tooldeck/tooldeck/internal/session"
	"github.com/tooldeck/tooldeck/pkg/sdk"

	_ "github.com/tooldeck/tooldeck/plugins/dummy"
	_ "github.com/tooldeck/tooldeck/plugins/perfect"
	_ "github.com/tooldeck/tooldeck/plugins/scandable"
)

const (
	perfectManifest = "name: Perfect\nversion: 1.1.0\ninfo: multiperfect checker\nentry: tooldeck.perfect\n"
	dummyManifest   = "name: Dummy\nversion: 0.1.0\ninfo: placeholder\nentry: tooldeck.dummy\n"
	scanManifest    = "name: Scandable\nversion: 1.0.2\ninfo: phrase scanner\nentry: tooldeck.scandable\n"
)

// recorder captures signal deliveries across goroutines.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var _ = Describe("Plugin and session lifecycle", func() {
	var (
		dir      string
		plugins  *plugin.Registry
		sessions *session.Registry
	)

	writeManifest := func(rel, content string) {
		path := filepath.Join(dir, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0o750)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeManifest("perfect.yaml", perfectManifest)
		writeManifest("dummy/plugin.yaml", dummyManifest)

		plugins = plugin.NewRegistry([]string{dir})
		sessions = session.NewRegistry()
	})

	AfterEach(func() {
		sessions.Close()
		plugins.Close()
	})

	Describe("discovery", func() {
		It("finds single-file and package manifests", func() {
			Expect(plugins.Plugins()).To(ConsistOf("Perfect", "Dummy"))
		})

		It("describes a plugin from its manifest", func() {
			desc, err := plugins.Describe("Perfect")
			Expect(err).NotTo(HaveOccurred())
			Expect(desc.Version).To(Equal("1.1.0"))
			Expect(desc.Entry).To(Equal("tooldeck.perfect"))
		})

		It("records a fault for a broken manifest without dropping the rest", func() {
			writeManifest("broken.yaml", "name: [\n")
			plugins.Rescan()

			Expect(plugins.Plugins()).To(ConsistOf("Perfect", "Dummy"))
			Expect(plugins.Faults()).To(HaveKey("broken"))
		})
	})

	Describe("sessions", func() {
		It("opens independent sessions for repeated instantiations", func() {
			first, err := plugins.Instantiate("Perfect")
			Expect(err).NotTo(HaveOccurred())
			second, err := plugins.Instantiate("Perfect")
			Expect(err).NotTo(HaveOccurred())
			Expect(first).NotTo(BeIdenticalTo(second))

			idA := sessions.Open("Perfect", first)
			idB := sessions.Open("Perfect", second)
			Expect(idA).NotTo(Equal(idB))
			Expect(sessions.Count()).To(Equal(2))
		})

		It("delivers removal before the changed snapshot", func() {
			rec := &recorder{}
			sessions.Removed().Subscribe(func(session.Removal) { rec.add("removed") })
			sessions.Changed().Subscribe(func(map[string]sdk.Instance) { rec.add("changed") })

			inst, err := plugins.Instantiate("Dummy")
			Expect(err).NotTo(HaveOccurred())
			sessions.Open("Dummy", inst)
			Expect(sessions.RemoveAt(0)).To(Succeed())

			Expect(rec.snapshot()).To(Equal([]string{"changed", "removed", "changed"}))
			Expect(sessions.Count()).To(Equal(0))
		})
	})

	Describe("watch mode", func() {
		It("publishes a manifest dropped in after startup", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			Expect(plugins.Watch(ctx)).To(Succeed())

			writeManifest("scandable.yaml", scanManifest)

			Eventually(plugins.Plugins, 3*time.Second, 50*time.Millisecond).
				Should(ConsistOf("Perfect", "Dummy", "Scandable"))
		})
	})
})

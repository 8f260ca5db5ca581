package conversation_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/drift/pkg/contextstore"
	"github.com/papercomputeco/drift/pkg/conversation"
	"github.com/papercomputeco/drift/pkg/kv"
	"github.com/papercomputeco/drift/pkg/kv/inmemory"
	"github.com/papercomputeco/drift/pkg/taxonomy"
	"github.com/papercomputeco/drift/pkg/topic"
)

// gatedDriver delays reads until the gate is released, making the
// not-ready window observable in tests.
type gatedDriver struct {
	*inmemory.Driver
	gate chan struct{}
}

func (g *gatedDriver) Get(ctx context.Context, key string) ([]byte, error) {
	<-g.gate
	return g.Driver.Get(ctx, key)
}

func newTestStoreOver(driver kv.Driver) *contextstore.Store {
	engine := topic.NewEngine(taxonomy.Default(), topic.Config{}, nil)

	store, err := contextstore.NewStore(&contextstore.Config{
		Driver: driver,
		Engine: engine,
	})
	Expect(err).NotTo(HaveOccurred())

	return store
}

func newTestManager(store *contextstore.Store, purge bool) *conversation.Manager {
	manager, err := conversation.NewManager(&conversation.Config{
		Store:        store,
		PurgeOnStart: purge,
	})
	Expect(err).NotTo(HaveOccurred())

	return manager
}

var _ = Describe("Manager", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewManager", func() {
		It("requires a store", func() {
			_, err := conversation.NewManager(&conversation.Config{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("StartNew", func() {
		It("mints an identifier and becomes ready immediately", func() {
			store := newTestStoreOver(inmemory.NewDriver())
			manager := newTestManager(store, true)

			_, ok := manager.Active()
			Expect(ok).To(BeFalse())
			Expect(manager.Ready()).To(BeFalse())

			id, err := manager.StartNew(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			active, ok := manager.Active()
			Expect(ok).To(BeTrue())
			Expect(active).To(Equal(id))
			Expect(manager.Ready()).To(BeTrue())
			Expect(manager.WaitReady(ctx)).To(Succeed())
		})

		It("mints a distinct identifier each time", func() {
			store := newTestStoreOver(inmemory.NewDriver())
			manager := newTestManager(store, false)

			first, err := manager.StartNew(ctx)
			Expect(err).NotTo(HaveOccurred())

			second, err := manager.StartNew(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).NotTo(Equal(first))
		})

		It("purges all persisted conversations when the policy is on", func() {
			driver := inmemory.NewDriver()
			store := newTestStoreOver(driver)
			manager := newTestManager(store, true)

			_, _, err := store.Update(ctx, "old", "What are the admission requirements?", topic.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			_, err = manager.StartNew(ctx)
			Expect(err).NotTo(HaveOccurred())

			keys, err := driver.ListKeys(ctx, "conversation/")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(BeEmpty())
		})

		It("preserves persisted conversations when the policy is off", func() {
			driver := inmemory.NewDriver()
			store := newTestStoreOver(driver)
			manager := newTestManager(store, false)

			_, _, err := store.Update(ctx, "old", "What are the admission requirements?", topic.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			_, err = manager.StartNew(ctx)
			Expect(err).NotTo(HaveOccurred())

			keys, err := driver.ListKeys(ctx, "conversation/")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(ConsistOf("conversation/old"))
		})
	})

	Describe("Load", func() {
		It("exposes a not-ready window until the context is warmed", func() {
			gate := make(chan struct{})
			driver := &gatedDriver{Driver: inmemory.NewDriver(), gate: gate}
			store := newTestStoreOver(driver)
			manager := newTestManager(store, false)

			Expect(manager.Load(ctx, "c1")).To(Succeed())

			active, ok := manager.Active()
			Expect(ok).To(BeTrue())
			Expect(active).To(Equal("c1"))
			Expect(manager.Ready()).To(BeFalse())

			close(gate)

			Eventually(manager.Ready, "5s").Should(BeTrue())
			Expect(manager.WaitReady(ctx)).To(Succeed())
		})

		It("unblocks WaitReady once warming completes", func() {
			gate := make(chan struct{})
			driver := &gatedDriver{Driver: inmemory.NewDriver(), gate: gate}
			store := newTestStoreOver(driver)
			manager := newTestManager(store, false)

			Expect(manager.Load(ctx, "c1")).To(Succeed())

			done := make(chan error, 1)
			go func() {
				done <- manager.WaitReady(ctx)
			}()

			Consistently(done, "200ms").ShouldNot(Receive())

			close(gate)

			Eventually(done, "5s").Should(Receive(BeNil()))
		})

		It("respects context cancellation while waiting", func() {
			gate := make(chan struct{})
			driver := &gatedDriver{Driver: inmemory.NewDriver(), gate: gate}
			store := newTestStoreOver(driver)
			manager := newTestManager(store, false)

			Expect(manager.Load(ctx, "c1")).To(Succeed())

			waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()

			err := manager.WaitReady(waitCtx)
			Expect(err).To(MatchError(context.DeadlineExceeded))

			close(gate)
		})

		It("resolves a pre-existing context rather than an empty one", func() {
			driver := inmemory.NewDriver()
			store := newTestStoreOver(driver)
			manager := newTestManager(store, false)

			_, _, err := store.Update(ctx, "c1", "What about tuition fees?", topic.RoleUser)
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.Load(ctx, "c1")).To(Succeed())
			Expect(manager.WaitReady(ctx)).To(Succeed())

			c, err := store.GetOrCreate(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Current).To(Equal("financial"))
		})

		It("requires a conversation id", func() {
			store := newTestStoreOver(inmemory.NewDriver())
			manager := newTestManager(store, false)

			Expect(manager.Load(ctx, "")).To(HaveOccurred())
		})
	})

	Describe("WaitReady", func() {
		It("returns ErrNoConversation before anything starts", func() {
			store := newTestStoreOver(inmemory.NewDriver())
			manager := newTestManager(store, false)

			err := manager.WaitReady(ctx)
			Expect(err).To(MatchError(conversation.ErrNoConversation))
		})
	})
})

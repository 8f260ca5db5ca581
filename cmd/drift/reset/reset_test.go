package resetcmder_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/drift/api"
	resetcmder "github.com/papercomputeco/drift/cmd/drift/reset"
	"github.com/papercomputeco/drift/pkg/dotdir"
)

var _ = Describe("NewResetCmd", func() {
	It("creates the command with expected use", func() {
		cmd := resetcmder.NewResetCmd()
		Expect(cmd.Use).To(Equal("reset [conversation-id]"))
	})

	It("has a full flag defaulting to false", func() {
		cmd := resetcmder.NewResetCmd()

		flag := cmd.Flags().Lookup("full")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("false"))
	})

	It("accepts at most one argument", func() {
		cmd := resetcmder.NewResetCmd()

		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"conv-1"})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"conv-1", "conv-2"})).To(HaveOccurred())
	})
})

var _ = Describe("reset command execution", func() {
	var tmpDir string
	var originalDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "drift-reset-test-*")
		Expect(err).NotTo(HaveOccurred())

		originalDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		Expect(os.MkdirAll(".drift", 0o755)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(originalDir)).To(Succeed())
		Expect(os.RemoveAll(tmpDir)).To(Succeed())
	})

	It("resets the conversation given as an argument", func() {
		var mu sync.Mutex
		var gotPath string
		var gotReq api.ResetRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			gotPath = r.Method + " " + r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"conversation_id": "conv-explicit-1", "full": false}`)
		}))
		defer server.Close()

		cmd := resetcmder.NewResetCmd()
		cmd.SetArgs([]string{"conv-explicit-1", "--api", server.URL})

		Expect(cmd.Execute()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(gotPath).To(Equal("POST /v1/conversations/conv-explicit-1/reset"))
		Expect(gotReq.Full).To(BeFalse())
	})

	It("defaults to the active conversation", func() {
		state := &dotdir.ActiveState{ConversationID: "conv-active-4", UpdatedAt: time.Now()}
		Expect(dotdir.NewManager().SaveActive(state, "")).To(Succeed())

		var mu sync.Mutex
		var gotPath string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			gotPath = r.Method + " " + r.URL.Path
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"conversation_id": "conv-active-4", "full": false}`)
		}))
		defer server.Close()

		cmd := resetcmder.NewResetCmd()
		cmd.SetArgs([]string{"--api", server.URL})

		Expect(cmd.Execute()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(gotPath).To(Equal("POST /v1/conversations/conv-active-4/reset"))
	})

	It("sends full when the flag is set", func() {
		var mu sync.Mutex
		var gotReq api.ResetRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"conversation_id": "conv-full-1", "full": true}`)
		}))
		defer server.Close()

		cmd := resetcmder.NewResetCmd()
		cmd.SetArgs([]string{"conv-full-1", "--full", "--api", server.URL})

		Expect(cmd.Execute()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(gotReq.Full).To(BeTrue())
	})

	It("errors when no conversation is active and no id is given", func() {
		cmd := resetcmder.NewResetCmd()
		cmd.SetArgs([]string{"--api", "http://localhost:1"})

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no active conversation"))
	})

	It("surfaces server errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": "failed to reset conversation"}`)
		}))
		defer server.Close()

		cmd := resetcmder.NewResetCmd()
		cmd.SetArgs([]string{"conv-broken-1", "--api", server.URL})

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("API returned status 500"))
	})
})

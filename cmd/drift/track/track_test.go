package trackcmder_test

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
	trackcmder "github.com/papercomputeco/drift/cmd/drift/track"
	"github.com/papercomputeco/drift/pkg/dotdir"
	"github.com/papercomputeco/drift/pkg/topic"
)

var _ = Describe("NewTrackCmd", func() {
	It("creates the command with expected use", func() {
		cmd := trackcmder.NewTrackCmd()
		Expect(cmd.Use).To(Equal("track <message>"))
	})

	It("has a role flag defaulting to user", func() {
		cmd := trackcmder.NewTrackCmd()

		flag := cmd.Flags().Lookup("role")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("r"))
		Expect(flag.DefValue).To(Equal("user"))
	})

	It("has an api flag defaulting to the local server", func() {
		cmd := trackcmder.NewTrackCmd()

		flag := cmd.Flags().Lookup("api")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("a"))
		Expect(flag.DefValue).To(Equal("http://localhost:8081"))
	})

	It("requires exactly one argument", func() {
		cmd := trackcmder.NewTrackCmd()

		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"one message"})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"two", "messages"})).To(HaveOccurred())
	})
})

var _ = Describe("track command execution", func() {
	var tmpDir string
	var originalDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "drift-track-test-*")
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

	It("posts the message to the active conversation", func() {
		state := &dotdir.ActiveState{ConversationID: "conv-active-1", UpdatedAt: time.Now()}
		Expect(dotdir.NewManager().SaveActive(state, "")).To(Succeed())

		var mu sync.Mutex
		var gotPath string
		var gotReq api.TrackRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			gotPath = r.Method + " " + r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			mu.Unlock()

			resp := api.TrackResponse{
				Snapshot: topic.Snapshot{
					ConversationID: "conv-active-1",
					Current:        "billing",
					Topics:         []topic.Topic{{ID: "billing", Confidence: 0.45}},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		cmd := trackcmder.NewTrackCmd()
		cmd.SetArgs([]string{"the invoice from last month is wrong", "--api", server.URL})

		Expect(cmd.Execute()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(gotPath).To(Equal("POST /v1/conversations/conv-active-1/messages"))
		Expect(gotReq.Text).To(Equal("the invoice from last month is wrong"))
		Expect(gotReq.Role).To(Equal("user"))
	})

	It("sends the role flag through to the server", func() {
		state := &dotdir.ActiveState{ConversationID: "conv-active-2", UpdatedAt: time.Now()}
		Expect(dotdir.NewManager().SaveActive(state, "")).To(Succeed())

		var mu sync.Mutex
		var gotReq api.TrackRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"snapshot": {"conversation_id": "conv-active-2", "topics": [], "transitions": []}}`)
		}))
		defer server.Close()

		cmd := trackcmder.NewTrackCmd()
		cmd.SetArgs([]string{"I have refunded the charge", "--role", "assistant", "--api", server.URL})

		Expect(cmd.Execute()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(gotReq.Role).To(Equal("assistant"))
	})

	It("starts a conversation when none is active", func() {
		var mu sync.Mutex
		var paths []string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.Method+" "+r.URL.Path)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/v1/conversations" {
				w.WriteHeader(http.StatusCreated)
				fmt.Fprint(w, `{"conversation_id": "conv-fresh-9"}`)
				return
			}
			fmt.Fprint(w, `{"snapshot": {"conversation_id": "conv-fresh-9", "topics": [], "transitions": []}}`)
		}))
		defer server.Close()

		cmd := trackcmder.NewTrackCmd()
		cmd.SetArgs([]string{"hello there", "--api", server.URL})

		Expect(cmd.Execute()).To(Succeed())

		mu.Lock()
		Expect(paths).To(Equal([]string{
			"POST /v1/conversations",
			"POST /v1/conversations/conv-fresh-9/messages",
		}))
		mu.Unlock()

		state, err := dotdir.NewManager().LoadActiveState("")
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.ConversationID).To(Equal("conv-fresh-9"))
	})

	It("rejects invalid roles without contacting the server", func() {
		cmd := trackcmder.NewTrackCmd()
		cmd.SetArgs([]string{"some message", "--role", "narrator", "--api", "http://localhost:1"})

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid role"))
	})

	It("surfaces server errors", func() {
		state := &dotdir.ActiveState{ConversationID: "conv-gone", UpdatedAt: time.Now()}
		Expect(dotdir.NewManager().SaveActive(state, "")).To(Succeed())

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "conversation not found"}`)
		}))
		defer server.Close()

		cmd := trackcmder.NewTrackCmd()
		cmd.SetArgs([]string{"anyone home", "--api", server.URL})

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("API returned status 404"))
	})
})

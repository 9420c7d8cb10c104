package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/pkg/collection"
	"github.com/tomp11/sb-stamp-manager/pkg/extract"
	"github.com/tomp11/sb-stamp-manager/pkg/extract/mock"
	"github.com/tomp11/sb-stamp-manager/pkg/identity"
	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
	"github.com/tomp11/sb-stamp-manager/pkg/storage/inmemory"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

// failingExtractor always errors, for exercising the bad gateway path.
type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, []byte, string) ([]extract.Candidate, error) {
	return nil, errors.New("provider exploded")
}

func (failingExtractor) Close() error { return nil }

func decodeJSON[T any](body io.Reader) T {
	var out T
	Expect(json.NewDecoder(body).Decode(&out)).To(Succeed())
	return out
}

func postJSON(server *Server, path string, payload any) (int, []byte) {
	body, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())

	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

var _ = Describe("Server", func() {
	var (
		store  *collection.Store
		server *Server
	)

	newServer := func(extractor extract.Extractor) *Server {
		local := inmemory.NewBackend()
		store = collection.NewStore(collection.Options{
			Local:    local,
			Debounce: time.Hour,
			Logger:   zap.NewNop(),
		})
		store.Activate(context.Background(), identity.Anonymous())
		return NewServer(Config{ListenAddr: ":0"}, store, extractor, zap.NewNop())
	}

	get := func(path string) (int, []byte) {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, data
	}

	BeforeEach(func() {
		server = newServer(mock.NewExtractor())
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			code, body := get("/ping")
			Expect(code).To(Equal(200))
			Expect(string(body)).To(ContainSubstring("pong"))
		})
	})

	Describe("GET /status", func() {
		It("reports a ready anonymous store", func() {
			code, body := get("/status")
			Expect(code).To(Equal(200))

			var status StatusResponse
			Expect(json.Unmarshal(body, &status)).To(Succeed())
			Expect(status.Owner).To(Equal(stamp.AnonymousOwner))
			Expect(status.Loading).To(BeFalse())
			Expect(status.Dirty).To(BeFalse())
			Expect(status.Records).To(BeZero())
		})
	})

	Describe("POST /ingest", func() {
		It("extracts stamps from a screenshot and merges them", func() {
			code, body := postJSON(server, "/ingest", IngestRequest{
				Image:    base64.StdEncoding.EncodeToString([]byte("fake image")),
				MimeType: "image/png",
			})
			Expect(code).To(Equal(200))

			result := decodeJSON[IngestResponse](bytes.NewReader(body))
			Expect(result.Added).To(Equal(3))
			Expect(store.Records()).To(HaveLen(3))
		})

		It("accepts pre-extracted records directly", func() {
			code, body := postJSON(server, "/ingest", IngestRequest{
				Records: []stamp.Record{{ID: "a", StoreName: "目黒店"}},
			})
			Expect(code).To(Equal(200))

			result := decodeJSON[IngestResponse](bytes.NewReader(body))
			Expect(result.Added).To(Equal(1))
		})

		It("assigns ids to records posted without one", func() {
			code, _ := postJSON(server, "/ingest", IngestRequest{
				Records: []stamp.Record{{StoreName: "目黒店"}},
			})
			Expect(code).To(Equal(200))

			records := store.Records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).NotTo(BeEmpty())
		})

		It("rejects invalid base64", func() {
			code, _ := postJSON(server, "/ingest", IngestRequest{Image: "!!not base64!!"})
			Expect(code).To(Equal(400))
		})

		It("rejects an empty batch", func() {
			code, _ := postJSON(server, "/ingest", IngestRequest{})
			Expect(code).To(Equal(400))
		})

		It("maps extraction failure to bad gateway", func() {
			server = newServer(failingExtractor{})

			code, _ := postJSON(server, "/ingest", IngestRequest{
				Image: base64.StdEncoding.EncodeToString([]byte("img")),
			})
			Expect(code).To(Equal(502))
		})

		It("refuses image ingestion without an extractor", func() {
			server = newServer(nil)

			code, _ := postJSON(server, "/ingest", IngestRequest{
				Image: base64.StdEncoding.EncodeToString([]byte("img")),
			})
			Expect(code).To(Equal(503))
		})
	})

	Describe("POST /sync", func() {
		It("reports a clean store after syncing", func() {
			code, body := postJSON(server, "/sync", fiber.Map{})
			Expect(code).To(Equal(200))
			Expect(string(body)).To(ContainSubstring(`"dirty":false`))
		})
	})

	Describe("GET /records", func() {
		BeforeEach(func() {
			date1, date2 := "2023/05/01", "2024/05/01"
			_, err := store.Ingest(context.Background(), []stamp.Record{
				{ID: "a", StoreName: "目黒店", LastVisitDate: &date1},
				{ID: "b", StoreName: "渋谷店", LastVisitDate: &date2},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the collection", func() {
			code, body := get("/records")
			Expect(code).To(Equal(200))

			var records []stamp.Record
			Expect(json.Unmarshal(body, &records)).To(Succeed())
			Expect(records).To(HaveLen(2))
		})

		It("sorts by visit date on request", func() {
			code, body := get("/records?sort=visit_date")
			Expect(code).To(Equal(200))

			var records []stamp.Record
			Expect(json.Unmarshal(body, &records)).To(Succeed())
			Expect(records[0].ID).To(Equal("b"))
			Expect(records[1].ID).To(Equal("a"))
		})
	})

	Describe("PUT /records/:id", func() {
		BeforeEach(func() {
			_, err := store.Ingest(context.Background(), []stamp.Record{{ID: "a", StoreName: "目黒店"}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("updates an existing record", func() {
			body, err := json.Marshal(stamp.Record{StoreName: "目黒店", Prefecture: "東京都"})
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest("PUT", "/records/a", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			Expect(store.Records()[0].Prefecture).To(Equal("東京都"))
		})

		It("returns 404 for unknown records", func() {
			body, _ := json.Marshal(stamp.Record{StoreName: "目黒店"})
			req := httptest.NewRequest("PUT", "/records/nope", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	Describe("DELETE /records/:id", func() {
		It("removes the record", func() {
			_, err := store.Ingest(context.Background(), []stamp.Record{{ID: "a", StoreName: "目黒店"}})
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest("DELETE", "/records/a", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(204))
			Expect(store.Records()).To(BeEmpty())
		})

		It("returns 404 for unknown records", func() {
			req := httptest.NewRequest("DELETE", "/records/nope", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})
})

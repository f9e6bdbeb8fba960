package companion_test

import (
	"context"
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/trendscout/trendscout/internal/companion"
)

func TestCompanion(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Companion Suite")
}

var _ = Describe("companion protocol", func() {
	var (
		server *companion.Server
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		var err error
		server, err = companion.NewServer("127.0.0.1:0")
		Expect(err).To(BeNil())

		ctx, cancel = context.WithCancel(context.Background())
		go func() {
			defer GinkgoRecover()
			Expect(server.Run(ctx)).To(Succeed())
		}()
	})

	AfterEach(func() {
		cancel()
	})

	Context("server", func() {
		It("forwards well-formed events and skips malformed lines", func() {
			conn, err := net.Dial("tcp", server.Addr())
			Expect(err).To(BeNil())

			_, err = conn.Write([]byte(`{"type":"status","message":"hello"}` + "\n"))
			Expect(err).To(BeNil())
			_, err = conn.Write([]byte("{this is not json\n"))
			Expect(err).To(BeNil())
			conn.Close()

			var event companion.Event
			Eventually(server.Events()).Should(Receive(&event))
			Expect(event.Type).To(Equal(companion.EventStatus))
			Expect(event.Message).To(Equal("hello"))
			Consistently(server.Events(), 100*time.Millisecond).ShouldNot(Receive())
		})

		It("keeps accepting after a connection ends", func() {
			first, err := net.Dial("tcp", server.Addr())
			Expect(err).To(BeNil())
			_, err = first.Write([]byte("garbage\n"))
			Expect(err).To(BeNil())
			first.Close()

			second, err := net.Dial("tcp", server.Addr())
			Expect(err).To(BeNil())
			_, err = second.Write([]byte(`{"type":"shutdown"}` + "\n"))
			Expect(err).To(BeNil())
			second.Close()

			var event companion.Event
			Eventually(server.Events()).Should(Receive(&event))
			Expect(event.Type).To(Equal(companion.EventShutdown))
		})
	})

	Context("client", func() {
		It("mirrors events to the server", func() {
			client := companion.NewClient(server.Addr())
			defer client.Close()
			Expect(client.Connected()).To(BeTrue())

			client.Emit(companion.NewJobProgressEvent("job-1", 3, 10, "sweeping"))

			var event companion.Event
			Eventually(server.Events()).Should(Receive(&event))
			Expect(event.Type).To(Equal(companion.EventJobProgress))
			Expect(event.JobID).To(Equal("job-1"))
			Expect(event.Completed).To(Equal(3))
			Expect(event.Total).To(Equal(10))
		})

		It("is a no-op without a configured address", func() {
			client := companion.NewClient("")
			Expect(client.Connected()).To(BeFalse())
			client.Emit(companion.NewStatusEvent("nobody listening"))
		})

		It("disconnects after a write failure instead of retrying", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(BeNil())

			client := companion.NewClient(listener.Addr().String())
			Expect(client.Connected()).To(BeTrue())
			listener.Close()

			// the peer is gone, writes eventually fail and the client gives up
			Eventually(func() bool {
				client.Emit(companion.NewStatusEvent("ping"))
				return client.Connected()
			}).Should(BeFalse())
		})
	})
})

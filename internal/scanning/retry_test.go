package scanning

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("retryPolicy", func() {
	var (
		policy   retryPolicy
		ctx      context.Context
		cancel   context.CancelFunc
		attempts int
		fn       func() error
		err      error
	)

	BeforeEach(func() {
		policy = newRetryPolicy(3, 0)
		ctx, cancel = context.WithCancel(context.Background())
		attempts = 0
	})

	AfterEach(func() {
		cancel()
	})

	JustBeforeEach(func() {
		err = policy.do(ctx, fn)
	})

	When("the call succeeds immediately", func() {
		BeforeEach(func() {
			fn = func() error {
				attempts++
				return nil
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should call the function once", func() {
			Expect(attempts).To(Equal(1))
		})
	})

	When("the call is rate limited then succeeds", func() {
		BeforeEach(func() {
			fn = func() error {
				attempts++
				if attempts < 3 {
					return fmt.Errorf("%w: quota", ErrRateLimited)
				}
				return nil
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should retry until it succeeds", func() {
			Expect(attempts).To(Equal(3))
		})
	})

	When("every attempt is rate limited", func() {
		BeforeEach(func() {
			fn = func() error {
				attempts++
				return fmt.Errorf("%w: quota", ErrRateLimited)
			}
		})

		It("returns the rate limit error", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrRateLimited)).To(BeTrue())
		})

		It("should stop at the attempt bound", func() {
			Expect(attempts).To(Equal(3))
		})
	})

	When("the call fails with a non-retryable error", func() {
		BeforeEach(func() {
			fn = func() error {
				attempts++
				return fmt.Errorf("%w: connection refused", ErrTransport)
			}
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrTransport)).To(BeTrue())
		})

		It("should not retry", func() {
			Expect(attempts).To(Equal(1))
		})
	})

	When("the context is cancelled during backoff", func() {
		BeforeEach(func() {
			policy = newRetryPolicy(3, time.Hour)
			fn = func() error {
				attempts++
				cancel()
				return fmt.Errorf("%w: quota", ErrRateLimited)
			}
		})

		It("returns the context error", func() {
			Expect(err).To(MatchError(context.Canceled))
		})

		It("should not attempt again", func() {
			Expect(attempts).To(Equal(1))
		})
	})
})

// Package membership orchestrates paid memberships settled through on-chain
// records and an external payment-streaming service.
//
// A subscriber joins either one creator (CreatorTarget) or the platform
// (PlatformTarget) for a monthly or yearly BillingPeriod. Joining funds a
// wrapped-currency account and creates a payment stream to the target's
// treasury in one transaction. Renewing tops the stream up. Cancelling stops it
// and unwraps the refund.
//
// # Components
//
//   - ConfigResolver reads a target's price and active flag.
//   - BillingPeriod, DetectPeriod and GuardRenewal keep renewals on the
//     period a stream was created with. A yearly period costs ten monthly prices.
//   - The preflight checks reject a join before anything is signed: missing or
//     inactive configs and existing memberships.
//   - FundingBuilder prepends the wrapped-currency funding instructions, adding
//     a fee buffer of 0.3% by default.
//   - StatusResolver reconciles the on-chain record with the streaming service
//     through an ordered list of strategies, falling back to a scan of the
//     subscriber's streams when there is no record.
//   - Invalidator drops exactly the cached queries a mutation made stale.
//
// # Usage
//
//	svc := membership.NewService(cfg, records, streams, submitter,
//		membership.WithLogger(log),
//		membership.WithObserver(obs),
//		membership.WithCache(redisStore),
//	)
//
//	res, err := svc.Join(ctx, membership.JoinRequest{
//		Subscriber: wallet,
//		Target:     membership.CreatorTarget(creator),
//		Period:     membership.Yearly,
//	})
//	switch {
//	case errors.Is(err, membership.ErrAlreadySubscribed):
//		// nothing was signed
//	case err != nil:
//		return err
//	}
//
// Errors map to stable codes through ErrorCode. Preflight and guard errors are
// human-readable and safe to show to the subscriber as is.
package membership

package membership

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
	"github.com/creatorkit/membership/pkg/statemachine"
	"github.com/creatorkit/membership/pkg/stream"
	"github.com/creatorkit/membership/pkg/telemetry"
)

// maxStreamName is the fixed width of the name field in the join instruction.
const maxStreamName = 64

// JoinRequest asks to join target for one billing period.
type JoinRequest struct {
	Subscriber ledger.PublicKey
	Target     Target
	Period     BillingPeriod
}

// JoinResult describes a submitted join.
type JoinResult struct {
	StreamID  ledger.PublicKey `json:"stream_id"`
	Signature string           `json:"signature"`
	Period    BillingPeriod    `json:"period"`
	// Amount is the period price; Funded adds the fee buffer.
	Amount      uint64 `json:"amount"`
	Funded      uint64 `json:"funded"`
	Resubscribe bool   `json:"resubscribe"`
	// Confirmed is false when the new membership was not yet visible after the
	// last verification attempt. The transaction is still final.
	Confirmed bool `json:"confirmed"`
}

// RenewRequest asks to top up a membership stream. StreamID is resolved from
// the current status when zero.
type RenewRequest struct {
	Subscriber ledger.PublicKey
	Target     Target
	Period     BillingPeriod
	StreamID   ledger.PublicKey
}

// RenewResult describes a submitted topup.
type RenewResult struct {
	StreamID  ledger.PublicKey `json:"stream_id"`
	Signature string           `json:"signature"`
	Period    BillingPeriod    `json:"period"`
	Amount    uint64           `json:"amount"`
	Confirmed bool             `json:"confirmed"`
}

// CancelRequest asks to stop a membership stream. StreamID is resolved from
// the current status when zero.
type CancelRequest struct {
	Subscriber ledger.PublicKey
	Target     Target
	StreamID   ledger.PublicKey
}

// CancelOutcome is the result kind of Cancel.
type CancelOutcome string

const (
	CancelCancelled CancelOutcome = "cancelled"
	// CancelNotFound means there was no stream to cancel. The subscriber is
	// already not subscribed, so it is not an error.
	CancelNotFound CancelOutcome = "not_found"
)

// CancelResult describes a cancel. UnwrapError is set when the follow-up
// unwrap failed; the cancel itself still succeeded. AlreadyCancelled streams
// are not cancelled again and carry no Signature.
type CancelResult struct {
	Outcome          CancelOutcome    `json:"outcome"`
	StreamID         ledger.PublicKey `json:"stream_id"`
	Signature        string           `json:"signature,omitempty"`
	AlreadyCancelled bool             `json:"already_cancelled,omitempty"`
	// Unwithdrawn is what the treasury had not withdrawn when Cancel ran, an
	// upper bound of the refund.
	Unwithdrawn     uint64 `json:"unwithdrawn"`
	Unwrapped       bool   `json:"unwrapped"`
	UnwrapSignature string `json:"unwrap_signature,omitempty"`
	UnwrapError     error  `json:"-"`
}

// Steps of a mutation. They surface as span events.
const (
	flowStarted       = statemachine.StringState("started")
	flowValidated     = statemachine.StringState("validated")
	flowFunded        = statemachine.StringState("funded")
	flowSubmitted     = statemachine.StringState("submitted")
	flowConfirmed     = statemachine.StringState("confirmed")
	flowUnconfirmed   = statemachine.StringState("unconfirmed")
	flowSettled       = statemachine.StringState("settled")
	flowUnwrapped     = statemachine.StringState("unwrapped")
	flowRefundWrapped = statemachine.StringState("refund_wrapped")

	stepValidate   = statemachine.StringEvent("validate")
	stepFund       = statemachine.StringEvent("fund")
	stepSubmit     = statemachine.StringEvent("submit")
	stepConfirm    = statemachine.StringEvent("confirm")
	stepTimeout    = statemachine.StringEvent("timeout")
	stepSettle     = statemachine.StringEvent("settle")
	stepUnwrap     = statemachine.StringEvent("unwrap")
	stepUnwrapFail = statemachine.StringEvent("unwrap_fail")
)

var mutationFlow = statemachine.MustDefine(flowStarted,
	statemachine.WithTransition(flowStarted, flowValidated, stepValidate),
	statemachine.WithTransition(flowValidated, flowFunded, stepFund),
	statemachine.WithTransition(flowFunded, flowSubmitted, stepSubmit),
	statemachine.WithTransition(flowValidated, flowSubmitted, stepSubmit),
	statemachine.WithTransition(flowSubmitted, flowConfirmed, stepConfirm),
	statemachine.WithTransition(flowSubmitted, flowUnconfirmed, stepTimeout),
	statemachine.WithTransition(flowSubmitted, flowSettled, stepSettle),
	statemachine.WithTransition(flowValidated, flowSettled, stepSettle),
	statemachine.WithTransition(flowSettled, flowUnwrapped, stepUnwrap),
	statemachine.WithTransition(flowSettled, flowRefundWrapped, stepUnwrapFail),
	statemachine.WithTerminal(flowConfirmed, flowUnconfirmed, flowUnwrapped, flowRefundWrapped),
)

type flow struct {
	m   *statemachine.Machine
	log *slog.Logger
}

func (s *service) startFlow(span telemetry.Span) flow {
	m := mutationFlow.Start(statemachine.OnTransition(func(_ context.Context, step statemachine.Step) {
		span.Event("step." + step.To.Name())
	}))
	return flow{m: m, log: s.log}
}

func (f flow) advance(ctx context.Context, event statemachine.Event) {
	if err := f.m.Fire(ctx, event, nil); err != nil {
		f.log.ErrorContext(ctx, "invalid mutation step", slog.String("step", event.Name()), logger.Error(err))
	}
}

func (s *service) Join(ctx context.Context, req JoinRequest) (res *JoinResult, err error) {
	ctx, span := s.begin(ctx, telemetry.OpJoin,
		logger.Subscriber(req.Subscriber), logger.Target(req.Target), slog.String("period", req.Period.String()))
	defer func() { span.End(outcomeOf(err), err) }()
	f := s.startFlow(span)

	if err := checkParties(req.Subscriber, req.Target); err != nil {
		return nil, err
	}
	if !req.Period.valid() {
		return nil, ErrInvalidPeriod
	}

	report, err := s.preflight.run(ctx, req.Subscriber, req.Target)
	if err != nil {
		return nil, err
	}
	f.advance(ctx, stepValidate)

	amount, err := req.Period.Amount(report.Config.MonthlyPrice)
	if err != nil {
		return nil, err
	}

	global, err := s.records.GlobalConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("read global config: %w", err)
	}
	if global == nil || global.Treasury.IsZero() {
		return nil, ErrTreasuryNotFound
	}

	funding, err := s.funding.Build(ctx, req.Subscriber, amount)
	if err != nil {
		return nil, err
	}
	f.advance(ctx, stepFund)
	span.SetAttrs(logger.Amount(funding.Amount))

	streamKey, err := s.newKey()
	if err != nil {
		return nil, fmt.Errorf("generate stream key: %w", err)
	}
	streamID := ledger.PublicKeyOf(streamKey)
	span.SetAttrs(logger.StreamID(streamID.String()))

	join, err := s.joinInstruction(req, streamID, amount, funding.WrappedAccount, global.Treasury)
	if err != nil {
		return nil, err
	}

	sig, err := s.submitter.Submit(ctx, ledger.Transaction{
		FeePayer:     req.Subscriber,
		Instructions: append(funding.Instructions, join),
		Signers:      []ed25519.PrivateKey{streamKey},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerSubmission, err)
	}
	f.advance(ctx, stepSubmit)
	span.SetAttrs(logger.Signature(sig))
	s.invalidator.Invalidate(ctx, req.Subscriber, req.Target, streamID)

	confirmed := s.verifier.wait(ctx, func(ctx context.Context) (bool, error) {
		st, err := s.status.Fresh(ctx, req.Subscriber, req.Target)
		if err != nil {
			return false, err
		}
		return st.Active() && st.StreamID.Equals(streamID), nil
	}, s.notifyRetry(ctx, "join"))
	s.finishVerification(ctx, f, confirmed)
	s.invalidator.Invalidate(ctx, req.Subscriber, req.Target, streamID)

	s.log.InfoContext(ctx, "membership joined",
		logger.Subscriber(req.Subscriber), logger.Target(req.Target),
		logger.StreamID(streamID.String()), logger.Signature(sig), logger.Amount(funding.Amount),
		slog.String("funded", ledger.FormatLamports(funding.Amount)))

	return &JoinResult{
		StreamID:    streamID,
		Signature:   sig,
		Period:      req.Period,
		Amount:      amount,
		Funded:      funding.Amount,
		Resubscribe: report.Resubscribe,
		Confirmed:   confirmed,
	}, nil
}

func (s *service) Renew(ctx context.Context, req RenewRequest) (res *RenewResult, err error) {
	ctx, span := s.begin(ctx, telemetry.OpRenew,
		logger.Subscriber(req.Subscriber), logger.Target(req.Target), slog.String("period", req.Period.String()))
	defer func() { span.End(outcomeOf(err), err) }()
	f := s.startFlow(span)

	if err := checkParties(req.Subscriber, req.Target); err != nil {
		return nil, err
	}
	if !req.Period.valid() {
		return nil, ErrInvalidPeriod
	}

	cfg, err := s.configs.Refresh(ctx, req.Target)
	switch {
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	case cfg == nil && req.Target.IsPlatform():
		return nil, ErrEcosystemNotFound
	case cfg == nil:
		return nil, ErrConfigNotFound
	case !cfg.Active:
		return nil, ErrConfigInactive
	}

	existing, err := s.existingStream(ctx, req.Subscriber, req.Target, req.StreamID)
	if err != nil {
		return nil, err
	}
	span.SetAttrs(logger.StreamID(existing.ID.String()))
	if existing.IsCancelled() {
		return nil, fmt.Errorf("%w: membership stream %s was cancelled, join again", ErrStreamNotFound, existing.ID)
	}
	if err := GuardRenewal(req.Period, existing); err != nil {
		var cross *CrossPeriodError
		if errors.As(err, &cross) {
			cross.MonthlyPrice = cfg.MonthlyPrice
		}
		return nil, err
	}
	amount, err := req.Period.Amount(cfg.MonthlyPrice)
	if err != nil {
		return nil, err
	}
	f.advance(ctx, stepValidate)

	span.SetAttrs(logger.Amount(amount))
	sig, err := s.streams.Topup(ctx, existing.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerSubmission, err)
	}
	f.advance(ctx, stepSubmit)
	span.SetAttrs(logger.Signature(sig))
	s.invalidator.Invalidate(ctx, req.Subscriber, req.Target, existing.ID)

	want := existing.DepositedAmount + amount
	confirmed := s.verifier.wait(ctx, func(ctx context.Context) (bool, error) {
		st, err := s.streams.Get(ctx, existing.ID)
		if err != nil {
			return false, err
		}
		return st.DepositedAmount >= want, nil
	}, s.notifyRetry(ctx, "renew"))
	s.finishVerification(ctx, f, confirmed)
	s.invalidator.Invalidate(ctx, req.Subscriber, req.Target, existing.ID)

	s.log.InfoContext(ctx, "membership renewed",
		logger.Subscriber(req.Subscriber), logger.Target(req.Target),
		logger.StreamID(existing.ID.String()), logger.Signature(sig), logger.Amount(amount),
		slog.String("topup", ledger.FormatLamports(amount)), slog.Time("previous_end", existing.EndsAt()))

	return &RenewResult{
		StreamID:  existing.ID,
		Signature: sig,
		Period:    req.Period,
		Amount:    amount,
		Confirmed: confirmed,
	}, nil
}

func (s *service) Cancel(ctx context.Context, req CancelRequest) (res *CancelResult, err error) {
	ctx, span := s.begin(ctx, telemetry.OpCancel, logger.Subscriber(req.Subscriber), logger.Target(req.Target))
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && res.Outcome == CancelNotFound {
			outcome = telemetry.OutcomeNotFound
		}
		span.End(outcome, err)
	}()
	f := s.startFlow(span)

	if err := checkParties(req.Subscriber, req.Target); err != nil {
		return nil, err
	}

	existing, err := s.existingStream(ctx, req.Subscriber, req.Target, req.StreamID)
	if errors.Is(err, ErrStreamNotFound) {
		s.log.InfoContext(ctx, "nothing to cancel", logger.Subscriber(req.Subscriber), logger.Target(req.Target))
		return &CancelResult{Outcome: CancelNotFound, StreamID: req.StreamID}, nil
	}
	if err != nil {
		return nil, err
	}
	span.SetAttrs(logger.StreamID(existing.ID.String()))
	f.advance(ctx, stepValidate)

	res = &CancelResult{Outcome: CancelCancelled, StreamID: existing.ID, Unwithdrawn: existing.Remaining()}
	defer s.invalidator.Invalidate(ctx, req.Subscriber, req.Target, existing.ID)

	if existing.IsCancelled() {
		// The refund already left the stream; only the unwrap is outstanding.
		res.AlreadyCancelled = true
		s.log.InfoContext(ctx, "stream already cancelled, unwrapping refund",
			logger.Subscriber(req.Subscriber), logger.StreamID(existing.ID.String()))
		f.advance(ctx, stepSettle)
	} else {
		sig, err := s.streams.Cancel(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLedgerSubmission, err)
		}
		f.advance(ctx, stepSubmit)
		span.SetAttrs(logger.Signature(sig))
		s.invalidator.Invalidate(ctx, req.Subscriber, req.Target, existing.ID)
		res.Signature = sig

		if err := s.settle(ctx); err != nil {
			res.UnwrapError = errors.Join(ErrUnwrapFailed, err)
			s.log.WarnContext(ctx, "stopped waiting for cancellation to settle, refund left wrapped",
				logger.StreamID(existing.ID.String()), logger.Error(err))
			return res, nil
		}
		f.advance(ctx, stepSettle)
	}

	unwrapSig, err := s.unwrap(ctx, req.Subscriber)
	if err != nil {
		res.UnwrapError = errors.Join(ErrUnwrapFailed, err)
		f.advance(ctx, stepUnwrapFail)
		s.log.WarnContext(ctx, "unwrap after cancel failed, balance can be unwrapped manually",
			logger.Subscriber(req.Subscriber), logger.StreamID(existing.ID.String()), logger.Error(err))
		return res, nil
	}
	f.advance(ctx, stepUnwrap)
	res.Unwrapped = true
	res.UnwrapSignature = unwrapSig

	s.log.InfoContext(ctx, "membership cancelled",
		logger.Subscriber(req.Subscriber), logger.Target(req.Target),
		logger.StreamID(existing.ID.String()), logger.Signature(res.Signature),
		slog.String("unwithdrawn", ledger.FormatLamports(res.Unwithdrawn)))
	return res, nil
}

// existingStream fetches the stream a renew or cancel acts on, resolving its id
// from the membership status when none was given. Unknown streams and streams
// paying another treasury are reported as ErrStreamNotFound.
func (s *service) existingStream(ctx context.Context, subscriber ledger.PublicKey, target Target, id ledger.PublicKey) (*stream.Stream, error) {
	if id.IsZero() {
		resolved, err := s.status.streamFor(ctx, subscriber, target)
		if errors.Is(err, errNoStream) {
			return nil, ErrStreamNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("resolve stream: %w", err)
		}
		id = resolved
	}

	st, err := s.streams.Get(ctx, id)
	if errors.Is(err, stream.ErrNotFound) {
		return nil, ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch stream %s: %w", id, err)
	}

	treasury, err := s.addrs.Treasury(target)
	if err != nil {
		return nil, fmt.Errorf("derive treasury: %w", err)
	}
	if !st.Recipient.Equals(treasury) {
		return nil, fmt.Errorf("%w: stream %s does not pay the %s treasury", ErrStreamNotFound, id, target)
	}
	return st, nil
}

func (s *service) settle(ctx context.Context) error {
	if s.cfg.SettleDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// unwrap closes the subscriber's wrapped-currency account, releasing its
// balance as native currency.
func (s *service) unwrap(ctx context.Context, subscriber ledger.PublicKey) (string, error) {
	wrapped, err := WrappedAccount(subscriber)
	if err != nil {
		return "", err
	}
	return s.submitter.Submit(ctx, ledger.Transaction{
		FeePayer:     subscriber,
		Instructions: []ledger.Instruction{ledger.CloseAccount(wrapped, subscriber, subscriber)},
	})
}

func (s *service) finishVerification(ctx context.Context, f flow, confirmed bool) {
	if confirmed {
		f.advance(ctx, stepConfirm)
		return
	}
	f.advance(ctx, stepTimeout)
	s.log.WarnContext(ctx, "change not visible after verification, refreshing caches anyway")
}

func (s *service) notifyRetry(ctx context.Context, op string) func(error, time.Duration) {
	return func(err error, next time.Duration) {
		s.log.DebugContext(ctx, "waiting for change to become visible",
			logger.Operation(op), slog.Duration("next", next), logger.Error(err))
	}
}

// joinInstruction builds the privileged join call. The program itself pins the
// stream recipient to the target's treasury.
func (s *service) joinInstruction(req JoinRequest, streamID ledger.PublicKey, amount uint64, wrapped, platformTreasury ledger.PublicKey) (ledger.Instruction, error) {
	cfgAddr, err := s.addrs.Config(req.Target)
	if err != nil {
		return ledger.Instruction{}, err
	}
	recordAddr, err := s.addrs.Record(req.Subscriber, req.Target)
	if err != nil {
		return ledger.Instruction{}, err
	}
	treasury, err := s.addrs.Treasury(req.Target)
	if err != nil {
		return ledger.Instruction{}, err
	}
	globalAddr, err := s.addrs.Global()
	if err != nil {
		return ledger.Instruction{}, err
	}

	name := "join_creator_membership"
	if req.Target.IsPlatform() {
		name = "join_ecosystem_membership"
	}

	return ledger.Instruction{
		ProgramID: s.addrs.Program(),
		Accounts: []ledger.AccountMeta{
			{PublicKey: req.Subscriber, IsSigner: true, IsWritable: true},
			{PublicKey: streamID, IsSigner: true, IsWritable: true},
			{PublicKey: cfgAddr},
			{PublicKey: recordAddr, IsWritable: true},
			{PublicKey: treasury, IsWritable: true},
			{PublicKey: platformTreasury, IsWritable: true},
			{PublicKey: globalAddr},
			{PublicKey: wrapped, IsWritable: true},
			{PublicKey: ledger.NativeMint},
			{PublicKey: s.cfg.StreamProgramID},
			{PublicKey: ledger.TokenProgramID},
			{PublicKey: ledger.AssociatedTokenProgramID},
			{PublicKey: ledger.SystemProgramID},
		},
		Data: joinData(name, req.Period, amount, StreamName(req.Target, req.Period)),
	}, nil
}

// joinData is discriminator | period u8 | amount u64 LE | name [64]byte.
func joinData(instruction string, period BillingPeriod, amount uint64, name string) []byte {
	disc := ledger.InstructionDiscriminator(instruction)
	data := make([]byte, 0, len(disc)+1+8+maxStreamName)
	data = append(data, disc[:]...)
	data = append(data, byte(period))
	data = binary.LittleEndian.AppendUint64(data, amount)
	var fixed [maxStreamName]byte
	copy(fixed[:], name)
	return append(data, fixed[:]...)
}

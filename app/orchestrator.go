package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tranvictor/namesvc/common"
	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/registry"
)

// ValidateName checks a name before anything is sent and returns its price.
func ValidateName(name string) (*big.Int, error) {
	length := registry.NameLength(name)
	switch {
	case name == "":
		return nil, &ValidationError{MsgNameRequired}
	case length < registry.MinNameLength:
		return nil, &ValidationError{MsgNameTooShort}
	case length > registry.MaxNameLength:
		return nil, &ValidationError{MsgNameTooLong}
	}
	return registry.Price(length), nil
}

// begin takes the one-transaction lock and tags the attempt.
func (c *Controller) begin(flow string) (*zap.Logger, bool) {
	log := c.log.With(zap.String("flow", flow), zap.String("attempt", uuid.NewString()))
	if !c.txMu.TryLock() {
		return log, false
	}
	return log, true
}

// Mint registers the form's name, then sets its record, then reloads the
// list after the refresh delay. The form is cleared only when every step
// succeeded.
func (c *Controller) Mint(ctx context.Context) error {
	log, ok := c.begin("mint")
	if !ok {
		return c.fail(log, ErrBusy)
	}
	defer c.txMu.Unlock()

	form := c.State().Form
	c.setPhase(PhaseValidating)
	price, err := ValidateName(form.DomainName)
	if err != nil {
		return c.abort(log, err)
	}
	session, err := c.requireSession(ctx)
	if err != nil {
		return c.abort(log, err)
	}
	name := form.DomainName
	log = log.With(zap.String("name", name), zap.Stringer("from", session.Account))

	c.setPhase(PhaseSubmitting)
	log.Info("minting", zap.Stringer("price", price))
	c.ui.Info("Minting %s for %s %s",
		registry.FullName(name),
		common.BigToFloatString(price, session.Network.GetNativeTokenDecimal()),
		session.Network.GetNativeTokenSymbol(),
	)
	tx, err := c.registry.Register(ctx, session.Account, name, price)
	if err != nil {
		return c.abort(log, err)
	}

	c.setPhase(PhaseConfirming)
	if _, err := c.wait(ctx, tx, "registration"); err != nil {
		return c.abort(log, err)
	}
	c.ui.Success("Domain minted! %s", networks.TxURL(session.Network, tx.Hash().Hex()))

	// the name is ours now; a failure below can't be rolled back
	c.setPhase(PhaseSettingRecord)
	tx, err = c.registry.SetRecord(ctx, session.Account, name, form.RecordText)
	if err == nil {
		c.setPhase(PhaseConfirmingRecord)
		_, err = c.wait(ctx, tx, "record")
	}
	if err != nil {
		err = c.abort(log, fmt.Errorf("%s is registered but its record was not set: %w", registry.FullName(name), err))
		c.ui.Info("Use set-record on %s to try the record again", registry.FullName(name))
		return err
	}
	c.ui.Success("Record set! %s", networks.TxURL(session.Network, tx.Hash().Hex()))

	c.setPhase(PhaseRefreshing)
	c.refreshAfter(ctx, log, c.opts.RefreshDelay)
	c.update(func(s *State) {
		s.Form = PendingForm{}
		s.Phase = PhaseIdle
	})
	return nil
}

// Update sets a new record on the name being edited and reloads the list
// right away. Only a name selected with Edit can be updated.
func (c *Controller) Update(ctx context.Context) error {
	log, ok := c.begin("update")
	if !ok {
		return c.fail(log, ErrBusy)
	}
	defer c.txMu.Unlock()

	c.update(func(s *State) { s.Loading = true })
	defer c.update(func(s *State) { s.Loading = false })

	form := c.State().Form
	c.setPhase(PhaseValidating)
	if form.DomainName == "" || form.RecordText == "" {
		return c.abort(log, &ValidationError{MsgUpdateFields})
	}
	session, err := c.requireSession(ctx)
	if err != nil {
		return c.abort(log, err)
	}
	log = log.With(zap.String("name", form.DomainName), zap.Stringer("from", session.Account))
	if !form.Editing {
		return c.abort(log, fmt.Errorf("%s: %w", form.DomainName, ErrNotEditing))
	}

	c.setPhase(PhaseSubmitting)
	log.Info("updating record")
	c.ui.Info("Updating %s with record %q", registry.FullName(form.DomainName), form.RecordText)
	tx, err := c.registry.SetRecord(ctx, session.Account, form.DomainName, form.RecordText)
	if err != nil {
		return c.abort(log, err)
	}
	c.setPhase(PhaseConfirming)
	if _, err := c.wait(ctx, tx, "record"); err != nil {
		return c.abort(log, err)
	}
	c.ui.Success("Record set %s", networks.TxURL(session.Network, tx.Hash().Hex()))

	c.setPhase(PhaseRefreshing)
	c.refreshAfter(ctx, log, 0)
	c.update(func(s *State) {
		s.Form = PendingForm{}
		s.Phase = PhaseIdle
	})
	return nil
}

func (c *Controller) abort(log *zap.Logger, err error) error {
	c.setPhase(PhaseError)
	return c.fail(log, err)
}

// wait blocks until tx is mined. A reverted receipt comes back as
// registry.ErrReverted.
func (c *Controller) wait(ctx context.Context, tx registry.Tx, what string) (*types.Receipt, error) {
	if c.opts.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConfirmTimeout)
		defer cancel()
	}
	stop := c.ui.Spinner(fmt.Sprintf("Waiting for the %s tx %s to be mined", what, tx.Hash().Hex()))
	receipt, err := tx.Wait(ctx)
	stop()
	if err != nil && !errors.Is(err, registry.ErrReverted) {
		c.ui.Info("The tx may still be mined later: %s", tx.Hash().Hex())
	}
	return receipt, err
}

// refreshAfter reloads the list after delay. A failed reload is reported but
// doesn't fail the flow that triggered it.
func (c *Controller) refreshAfter(ctx context.Context, log *zap.Logger, delay time.Duration) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			log.Warn("refresh skipped", zap.Error(ctx.Err()))
			return
		case <-timer.C:
		}
	}
	if err := c.Refresh(ctx); err != nil {
		log.Warn("refresh after tx failed", zap.Error(err))
	}
}

var _ Registry = (*registry.Client)(nil)

package aswap_test

import (
	"context"
	"testing"

	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/ledger/memledger"
	"github.com/iov-one/swapkit/x/aswap"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLifecycle(t *testing.T) {
	Convey("Given a compiled HTLC with deadline 256", t, func() {
		ctx := context.Background()
		l := memledger.New(swapkit.ChainTip{Height: 100})
		c, err := aswap.NewHTLC(htlcParams(256))
		So(err, ShouldBeNil)
		So(c.State(), ShouldEqual, aswap.StateCompiled)

		Convey("no branch can be selected before funding", func() {
			_, err := c.SelectBranch(swapkit.ChainTip{Height: 300}, aswap.TagRefund)
			So(errors.ErrContractState.Is(err), ShouldBeTrue)
		})

		Convey("When the ledger reports the funding", func() {
			l.Fund(c.Script().PkScript(), 50000)
			funded, err := c.ObserveFunding(ctx, l)
			So(err, ShouldBeNil)
			So(funded, ShouldBeTrue)
			So(c.State(), ShouldEqual, aswap.StateFunded)

			Convey("before the deadline only the reveal branch is spendable", func() {
				tip := swapkit.ChainTip{Height: 255}
				So(c.SpendableBranches(tip), ShouldHaveLength, 1)

				b, err := c.SelectBranch(tip, "")
				So(err, ShouldBeNil)
				So(c.Tag(b.Name), ShouldEqual, aswap.TagReveal)

				_, err = c.SelectBranch(tip, aswap.TagRefund)
				So(errors.ErrContractState.Is(err), ShouldBeTrue)
			})

			Convey("at the deadline both branches are spendable and a path is required", func() {
				tip := swapkit.ChainTip{Height: 256}
				_, err := c.SelectBranch(tip, "")
				So(errors.ErrAmbiguousPolicyPath.Is(err), ShouldBeTrue)
				So(errors.IsRecoverable(err), ShouldBeTrue)

				b, err := c.SelectBranch(tip, aswap.TagRefund)
				So(err, ShouldBeNil)
				So(b.LockTime, ShouldEqual, swapkit.LockTime(256))
			})

			Convey("a refund ends the contract", func() {
				So(c.MarkSpent(aswap.TagRefund), ShouldBeNil)
				So(c.State(), ShouldEqual, aswap.StateSpentByRefund)
				So(c.State().Terminal(), ShouldBeTrue)
				So(c.MarkSpent(aswap.TagReveal), ShouldNotBeNil)
			})
		})
	})
}

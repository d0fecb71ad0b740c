package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquipSlotExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")

	result, err := f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c2", Slot: model.SlotToa})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, result.Buffs.Discovery, 1e-9)
	assert.Zero(t, result.Buffs.PackStacking)
	assert.Empty(t, result.Trimmed)

	c1, err := f.store.GetUserMask(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.SlotNone, c1.EquippedSlot)
	c2, err := f.store.GetUserMask(ctx, "u1", "c2")
	require.NoError(t, err)
	assert.Equal(t, model.SlotToa, c2.EquippedSlot)

	// 换到 TURAGA 释放 TOA
	result, err = f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c2", Slot: model.SlotTuraga})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, result.Buffs.Discovery, 1e-9)

	coll, err := f.svc.User.Collection(ctx, "u1")
	require.NoError(t, err)
	slots := map[model.Slot]int{}
	for _, e := range coll.Masks {
		slots[e.Mask.EquippedSlot]++
	}
	assert.Equal(t, 0, slots[model.SlotToa])
	assert.Equal(t, 1, slots[model.SlotTuraga])
}

func TestEquipConfirmationRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 18, 0)

	// c1 被顶下后上限从 3 包降到 2 包
	req := EquipRequest{UserID: "u1", MaskID: "c2", Slot: model.SlotToa}
	_, err := f.svc.Equip.Equip(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, errcode.CodeConfirmationRequired, Code(err))

	var confirm *ConfirmationRequiredError
	require.True(t, errors.As(err, &confirm))
	assert.Equal(t, ConfirmationRequiredError{PackID: "gen1", StoredPacks: 3, NextCap: 2, Excess: 1}, *confirm)

	// 未确认时不做任何修改
	assert.Equal(t, 18, f.units(t, "u1", "gen1"))
	c1, err := f.store.GetUserMask(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.SlotToa, c1.EquippedSlot)

	req.Confirm = true
	result, err := f.svc.Equip.Equip(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []StorageTrim{{PackID: "gen1", TrimmedUnits: 6, PackCap: 2}}, result.Trimmed)
	assert.Equal(t, 12, f.units(t, "u1", "gen1"))
	assert.Equal(t, 6, f.units(t, "u1", "gen2"))
	assert.Contains(t, f.publisher.kinds(), model.EventStorageTrimmed)
	assert.Contains(t, f.publisher.kinds(), model.EventMaskEquipped)
}

func TestEquipRefreshesAtOldSpeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	f.setProgress(t, "u1", "gen1", 0, 0)

	f.clock.Advance(1200 * time.Second)
	_, err := f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c2", Slot: model.SlotTuraga})
	require.NoError(t, err)

	p, err := f.store.GetUserPackProgress(ctx, "u1", "gen1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.FractionalUnits)
	assert.Equal(t, t0.Add(1200*time.Second), p.LastUnitTS)
}

func TestEquipUnequip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")

	result, err := f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c1", Slot: model.SlotNone})
	require.NoError(t, err)
	assert.Zero(t, result.Buffs.PackStacking)

	kinds := f.publisher.kinds()
	assert.Equal(t, model.EventMaskUnequipped, kinds[len(kinds)-1])
	assert.Equal(t, "TOA", f.publisher.events[len(kinds)-1].Payload["slot"])
}

func TestEquipUnchangedSlotRecordsNoEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")
	before := len(f.publisher.kinds())
	stored := len(f.store.Events())

	// c2 未装备，c1 已在 TOA
	_, err := f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c2", Slot: model.SlotNone})
	require.NoError(t, err)
	_, err = f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c1", Slot: model.SlotToa})
	require.NoError(t, err)

	assert.Len(t, f.publisher.kinds(), before)
	assert.Len(t, f.store.Events(), stored)
}

func TestEquipErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")

	_, err := f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "m1", Slot: model.SlotToa})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Equip.Equip(ctx, EquipRequest{UserID: "u1", MaskID: "c1", Slot: "HEAD"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.Equip.Equip(ctx, EquipRequest{MaskID: "c1", Slot: model.SlotToa})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSetColor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision(t, "u1")

	_, err := f.svc.Equip.SetColor(ctx, "u1", "c1", "black")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColorLocked)
	assert.Equal(t, errcode.CodeColorLocked, Code(err))

	m, err := f.store.GetUserMask(ctx, "u1", "c1")
	require.NoError(t, err)
	m.UnlockColor("black")
	require.NoError(t, f.store.UpsertUserMask(ctx, m))

	updated, err := f.svc.Equip.SetColor(ctx, "u1", "c1", "black")
	require.NoError(t, err)
	assert.Equal(t, "black", updated.EquippedColor)
	assert.Equal(t, []string{"black", "red"}, updated.UnlockedColors)
	assert.Contains(t, f.publisher.kinds(), model.EventColorChanged)

	_, err = f.svc.Equip.SetColor(ctx, "u1", "m1", "silver")
	assert.ErrorIs(t, err, ErrNotFound)
}

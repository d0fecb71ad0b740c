package dao

import (
	"strings"
	"testing"
	"time"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func TestBuildSelectProgress(t *testing.T) {
	query, args, err := buildSelectProgress("u1", "gen1", false)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT user_id, pack_id, fractional_units, last_unit_ts, pity_counter, last_pack_claim_ts "+
			"FROM user_pack_progress WHERE pack_id = $1 AND user_id = $2",
		query)
	assert.Equal(t, []any{"gen1", "u1"}, args)

	query, _, err = buildSelectProgress("u1", "gen1", true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(query, "FOR UPDATE"), query)
}

func TestBuildUpsertProgress(t *testing.T) {
	p := &model.UserPackProgress{UserID: "u1", PackID: "gen1", FractionalUnits: 6, LastUnitTS: now, PityCounter: 2}
	query, args, err := buildUpsertProgress(p)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO user_pack_progress (user_id,pack_id,fractional_units,last_unit_ts,pity_counter,last_pack_claim_ts) VALUES ($1,$2,$3,$4,$5,$6)"), query)
	assert.Contains(t, query, "ON CONFLICT (user_id, pack_id) DO UPDATE SET")
	require.Len(t, args, 6)
	assert.Equal(t, 6, args[2])
	assert.Nil(t, args[5])
}

func TestBuildUserQueries(t *testing.T) {
	query, args, err := buildInsertUser("u1", true, now)
	require.NoError(t, err)
	assert.Contains(t, query, "ON CONFLICT (user_id) DO NOTHING RETURNING user_id, is_guest, created_at")
	assert.Equal(t, []any{"u1", true, now}, args)

	query, args, err = buildSelectUser("u1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT user_id, is_guest, created_at FROM users WHERE user_id = $1", query)
	assert.Equal(t, []any{"u1"}, args)
}

func TestBuildUserMaskQueries(t *testing.T) {
	query, args, err := buildSelectUserMasks("u1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(query, "FROM user_masks WHERE user_id = $1 ORDER BY mask_id"), query)
	assert.Equal(t, []any{"u1"}, args)

	query, args, err = buildSelectUserMasks("u1", "hau")
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE mask_id = $1 AND user_id = $2")
	assert.Equal(t, []any{"hau", "u1"}, args)

	m := &model.UserMask{UserID: "u1", MaskID: "hau", OwnedCount: 1, Level: 1, EquippedSlot: model.SlotToa}
	query, args, err = buildUpsertUserMask(m)
	require.NoError(t, err)
	assert.Contains(t, query, "ON CONFLICT (user_id, mask_id) DO UPDATE SET")
	require.Len(t, args, len(userMaskColumns))
	assert.Equal(t, "TOA", args[5])
	assert.Equal(t, []string{}, args[6])
}

func TestBuildPackOpenQueries(t *testing.T) {
	o := &model.PackOpen{
		ID: 42, UserID: "u1", PackID: "gen1", ClientRequestID: "req", Seed: "s", PityAfter: 0, CreatedAt: now,
		Pulls: []model.PackOpenPull{
			{Index: 0, DrawResultItem: model.DrawResultItem{MaskID: "hau", Rarity: model.RarityCommon, UnlockedColors: []string{"red"}}},
			{Index: 1, DrawResultItem: model.DrawResultItem{MaskID: "vahi", Rarity: model.RarityMythic}},
		},
	}

	query, args, err := buildInsertPackOpen(o)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO pack_opens (id,user_id,pack_id,client_request_id,seed,pity_after,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)", query)
	assert.Equal(t, int64(42), args[0])

	query, args, err = buildInsertPulls(o)
	require.NoError(t, err)
	assert.Contains(t, query, "INSERT INTO pack_open_pulls")
	assert.Len(t, args, 2*len(packPullColumns))
	assert.Equal(t, "MYTHIC", args[len(packPullColumns)+4])
	assert.Equal(t, []string{}, args[2*len(packPullColumns)-1])

	query, args, err = buildSelectPackOpen("u1", "req")
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE client_request_id = $1 AND user_id = $2")
	assert.Equal(t, []any{"req", "u1"}, args)

	query, _, err = buildSelectPulls(42)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(query, "ORDER BY pull_index"), query)
}

func TestBuildInsertEvent(t *testing.T) {
	evt := model.NewEvent("u1", model.EventPackOpened, map[string]string{"pack_id": "gen1"}, now)
	query, args, err := buildInsertEvent(evt, []byte(`{"pack_id":"gen1"}`))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO events (user_id,kind,payload,created_at) VALUES ($1,$2,$3,$4) RETURNING id", query)
	assert.Equal(t, "pack_opened", args[1])
}

func TestOpenResultCodec(t *testing.T) {
	codec := serializer.NewMsgpack()
	result := &model.OpenResult{
		Masks: []model.DrawResultItem{
			{MaskID: "hau", Name: "Hau", Rarity: model.RarityCommon, Color: "red", IsNew: true,
				LevelBefore: 1, LevelAfter: 1, FinalLevelAfter: 1, UnlockedColors: []string{"red"}},
			{MaskID: "vahi", Name: "Vahi", Rarity: model.RarityMythic, Color: "gold", EssenceAwarded: 50,
				EssenceRemaining: 50, FinalEssenceRemaining: 50, LevelBefore: 1, LevelAfter: 1, FinalLevelAfter: 1,
				UnlockedColors: []string{"black", "gold"}},
		},
		PityCounter: 0,
	}

	data, err := encodeOpenResult(codec, result)
	require.NoError(t, err)

	got, err := decodeOpenResult(codec, data)
	require.NoError(t, err)
	assert.Equal(t, result, got)
}

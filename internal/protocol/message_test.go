package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tractor-game/internal/engine"
)

func TestDecodeClient(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"verb":"req:hello","nick":"mesozoic"}`))
	require.NoError(t, err)
	hello, ok := msg.(RequestHello)
	require.True(t, ok)
	assert.Equal(t, "mesozoic", hello.Nick)

	msg, err = DecodeClient([]byte(`{"verb":"req:update","tx":7,"intent":{"kind":"pass"}}`))
	require.NoError(t, err)
	upd, ok := msg.(RequestUpdate)
	require.True(t, ok)
	assert.Equal(t, engine.TxID(7), upd.Tx)
	assert.JSONEq(t, `{"kind":"pass"}`, string(upd.Intent))

	_, err = DecodeClient([]byte(`{"verb":"req:frobnicate"}`))
	assert.Error(t, err)

	_, err = DecodeClient([]byte(`not json`))
	assert.Error(t, err)

	// server verbs are not client verbs
	_, err = DecodeClient([]byte(`{"verb":"hello"}`))
	assert.Error(t, err)
}

func TestDecodeServer(t *testing.T) {
	reset, err := NewReset(map[string]int{"score": 40}, []engine.User{
		{ID: 1, Nick: "a"},
		{ID: 2, Nick: "b"},
	})
	require.NoError(t, err)
	data, err := Encode(reset)
	require.NoError(t, err)

	msg, err := DecodeServer(data)
	require.NoError(t, err)
	got, ok := msg.(Reset)
	require.True(t, ok)
	assert.Len(t, got.Who, 2)
	assert.JSONEq(t, `{"score":40}`, string(got.State))

	_, err = DecodeServer([]byte(`{"verb":"req:hello","nick":"x"}`))
	assert.Error(t, err)
}

func TestUpdateTxNullability(t *testing.T) {
	// the requester's copy carries its tx; everyone else sees null
	tx := engine.TxID(3)
	mine, err := NewUpdate(&tx, "e")
	require.NoError(t, err)
	data, err := Encode(mine)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tx":3`)

	theirs, err := NewUpdate(nil, "e")
	require.NoError(t, err)
	data, err = Encode(theirs)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tx":null`)

	msg, err := DecodeServer(data)
	require.NoError(t, err)
	upd, ok := msg.(Update)
	require.True(t, ok)
	assert.Nil(t, upd.Tx)
}

func TestCommandRoundTrip(t *testing.T) {
	cmd := engine.EngineCmd(map[string]string{"play": "K♠K♠"})
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"engine","effect":{"play":"K♠K♠"}}`, string(data))

	var back engine.Command[map[string]string]
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, engine.KindEngine, back.Kind)
	assert.Equal(t, "K♠K♠", back.Effect["play"])

	u := engine.User{ID: 4, Nick: "d"}
	pcmd := engine.ProtocolCmd[map[string]string](engine.JoinAction(u))
	data, err = json.Marshal(pcmd)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"kind":"protocol","effect":{"verb":"user:join","who":{"id":4,"nick":"d"}}}`,
		string(data))

	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, engine.KindProtocol, back.Kind)
	require.NotNil(t, back.Protocol.Who)
	assert.Equal(t, engine.UserID(4), back.Protocol.Who.ID)
}

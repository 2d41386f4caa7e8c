package textproto

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCommandPut(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePut(&buf, []byte("key"), []byte("value")))

	cmd, err := ReadCommand(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, CmdPut, cmd.Name)
	assert.Equal(t, []byte("key"), cmd.Key)
	assert.Equal(t, []byte("value"), cmd.Value)
}

func TestReadCommandPutBinarySafe(t *testing.T) {
	key := []byte{0x00, 0x0d, 0x0a, 0xff}
	value := []byte{0x0d, 0x0a, 0x00, 0x01}

	var buf bytes.Buffer
	require.NoError(t, WritePut(&buf, key, value))

	cmd, err := ReadCommand(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, key, cmd.Key)
	assert.Equal(t, value, cmd.Value)
}

func TestReadCommandGetDelExists(t *testing.T) {
	for _, name := range []CommandName{CmdGet, CmdDel, CmdExists} {
		var buf bytes.Buffer
		require.NoError(t, WriteKeyCommand(&buf, name, []byte("k")))

		cmd, err := ReadCommand(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name)
		assert.Equal(t, []byte("k"), cmd.Key)
	}
}

func TestReadCommandBare(t *testing.T) {
	for _, name := range []CommandName{CmdSize, CmdFlush, CmdStats} {
		var buf bytes.Buffer
		require.NoError(t, WriteBare(&buf, name))

		cmd, err := ReadCommand(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name)
		assert.Nil(t, cmd.Key)
	}
}

func TestReadCommandRejectsUnknownVerb(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("NOPE\r\n"))
	_, err := ReadCommand(r)
	assert.Error(t, err)
}

func TestReadCommandRejectsMalformedLength(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("GET notanumber\r\n"))
	_, err := ReadCommand(r)
	assert.Error(t, err)
}

func TestReplyRoundTripBulkAndNilBulk(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBulk(&buf, []byte("hello")))
	reply, err := ReadReply(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, byte('$'), reply.Kind)
	assert.False(t, reply.IsNil)
	assert.Equal(t, []byte("hello"), reply.Bulk)

	buf.Reset()
	require.NoError(t, WriteNilBulk(&buf))
	reply, err = ReadReply(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.True(t, reply.IsNil)
}

func TestReplyRoundTripIntegerAndError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInteger(&buf, 42))
	reply, err := ReadReply(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, byte(':'), reply.Kind)
	assert.Equal(t, "42", reply.Line)

	buf.Reset()
	require.NoError(t, WriteError(&buf, "WAL_ERROR", "disk full"))
	reply, err = ReadReply(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, byte('-'), reply.Kind)
	assert.Equal(t, "WAL_ERROR disk full", reply.Line)
}

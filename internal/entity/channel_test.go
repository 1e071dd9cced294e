package entity

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseChannel(t *testing.T) {
	assert.Equal(t, ChannelWeb, ParseChannel(""))
	assert.Equal(t, ChannelLine, ParseChannel("line"))
	assert.Equal(t, ChannelFB, ParseChannel("facebook"))
	assert.Equal(t, ChannelIG, ParseChannel("IG"))
	assert.Equal(t, ChannelUnknown, ParseChannel("telegram"))
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "LINE_U123", ChannelLine.Identifier("U123"))
	assert.Equal(t, "LINE_U123", ChannelLine.Identifier("LINE_U123"))
	assert.Regexp(t, regexp.MustCompile(`^FB_[0-9a-f]{8}$`), ChannelFB.Identifier(""))
	assert.Equal(t, ChannelLine, ChannelOf("LINE_U123"))
	assert.Equal(t, "U123", UserIDOf("LINE_U123"))
}

func TestIsGenericIdentifier(t *testing.T) {
	assert.True(t, IsGenericIdentifier(""))
	assert.True(t, IsGenericIdentifier("WEB_0812345678"))
	assert.True(t, IsGenericIdentifier("UNKNOWN_1a2b3c4d"))
	assert.False(t, IsGenericIdentifier("WEB_0812345678901"))
	assert.False(t, IsGenericIdentifier("LINE_U1234"))
}

func TestComputeNetAmount(t *testing.T) {
	net := ComputeNetAmount(decimal.NewFromInt(350), decimal.NewFromInt(40), decimal.NewFromInt(20), decimal.RequireFromString("24.5"))
	assert.True(t, net.Equal(decimal.RequireFromString("394.5")))
}

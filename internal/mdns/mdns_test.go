package mdns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTXT_IncludesNameOnlyWhenSet(t *testing.T) {
	txt := BuildTXT(Metadata{
		Version: "1.0.0",
		UUID: "abc-123",
		Hostname: "host1",
		APIKeyRequired: true,
		ProjectCount: 3,
	})
	require.Equal(t, "1.0.0", txt["version"])
	require.Equal(t, "true", txt["api_key_required"])
	require.Equal(t, "3", txt["projects"])
	require.NotContains(t, txt, "name")

	named := BuildTXT(Metadata{InstanceName: "my-box"})
	require.Equal(t, "my-box", named["name"])
}

func TestShouldSuppress_DisabledOrLoopback(t *testing.T) {
	require.True(t, ShouldSuppress("0.0.0.0", false))
	require.True(t, ShouldSuppress("127.0.0.1", true))
	require.True(t, ShouldSuppress("::1", true))
	require.False(t, ShouldSuppress("192.168.1.5", true))
}

func TestGenerateInstanceName_CustomNameWins(t *testing.T) {
	require.Equal(t, "custom", GenerateInstanceName("host1", "abcdefgh1234", "custom"))
}

func TestGenerateInstanceName_DefaultUsesShortUUID(t *testing.T) {
	name := GenerateInstanceName("host1", "abcdefgh1234", "")
	require.Equal(t, "Yocore-host1-abcdefgh", name)
}

func TestGenerateInstanceName_ShortUUIDNotTruncatedBelow8(t *testing.T) {
	name := GenerateInstanceName("host1", "abc", "")
	require.Equal(t, "Yocore-host1-abc", name)
}

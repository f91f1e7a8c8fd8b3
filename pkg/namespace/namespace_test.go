package namespace

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medamarfilali/cubo/pkg/types"
)

func TestSysProcAttrNamespaces(t *testing.T) {
	attr := SysProcAttr(types.NetworkBridge)

	assert.NotZero(t, attr.Cloneflags&syscall.CLONE_NEWNS)
	assert.NotZero(t, attr.Cloneflags&syscall.CLONE_NEWPID)
	assert.NotZero(t, attr.Cloneflags&syscall.CLONE_NEWUTS)
	assert.NotZero(t, attr.Cloneflags&syscall.CLONE_NEWNET)
}

func TestSysProcAttrHostNetwork(t *testing.T) {
	attr := SysProcAttr(types.NetworkHost)
	assert.Zero(t, attr.Cloneflags&syscall.CLONE_NEWNET, "host networking must not unshare net")
}

func TestSysProcAttrUserNamespace(t *testing.T) {
	attr := SysProcAttr(types.NetworkNone)

	if os.Geteuid() == 0 {
		assert.Zero(t, attr.Cloneflags&syscall.CLONE_NEWUSER, "root does not need a user namespace")
		assert.Empty(t, attr.UidMappings)
	} else {
		require.NotZero(t, attr.Cloneflags&syscall.CLONE_NEWUSER)
		require.Len(t, attr.UidMappings, 1)
		assert.Equal(t, 0, attr.UidMappings[0].ContainerID)
		assert.Equal(t, os.Geteuid(), attr.UidMappings[0].HostID)
		require.Len(t, attr.GidMappings, 1)
		assert.Equal(t, os.Getegid(), attr.GidMappings[0].HostID)
		assert.False(t, attr.GidMappingsEnableSetgroups)
	}
}

func TestSetUserInvalidSpecs(t *testing.T) {
	assert.Error(t, SetUser("notanumber"))
	assert.Error(t, SetUser("1000:notanumber"))
	assert.Error(t, SetUser("1000:1000:extra"))
}

func TestBindMountMissingHost(t *testing.T) {
	target := t.TempDir()
	err := BindMount("/nonexistent/host/path", target+"/mnt", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownBrowsers(t *testing.T) {
	for _, name := range []string{
		"Chrome", "ChromeHeadless", "Chromium", "ChromiumHeadless",
		"Firefox", "FirefoxHeadless",
	} {
		t.Run(name, func(t *testing.T) {
			l, err := Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, name, l.Name)
		})
	}
}

func TestLookupUnknownBrowser(t *testing.T) {
	_, err := Lookup("NetscapeNavigator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported browser")
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
}

func TestChromeArgsHeadless(t *testing.T) {
	args := chromeArgs("/tmp/profile", "http://localhost:9876/?id=ChromeHeadless", true)
	assert.Contains(t, args, "--headless=new")
	assert.Equal(t, "http://localhost:9876/?id=ChromeHeadless", args[len(args)-1])
}

func TestFirefoxArgsProfile(t *testing.T) {
	args := firefoxArgs("/tmp/profile", "http://localhost:9876/", false)
	assert.Equal(t, []string{"-profile", "/tmp/profile", "-no-remote", "http://localhost:9876/"}, args)
	assert.NotContains(t, args, "-headless")
}

package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]Profile{
		"https://domeggook.com/main/item.php?id=1":         ProfileDomeggook,
		"https://www.domeggook.com/123":                    ProfileDomeggook,
		"https://domeme.domeggook.com/s/456":               ProfileDomemedb,
		"https://ownerclan.com/V2/product/view.php?x=1":    ProfileOwnerclan,
		"https://www.onch3.co.kr/dbcenter/view.php?id=9":   ProfileOnchannel,
		"https://detail.1688.com/offer/6543.html":          ProfileAlibaba1688,
		"https://ko.aliexpress.com/item/100500.html":       ProfileAliexpress,
		"https://proxy.example/fetch?u=detail.1688.com/x":  ProfileAlibaba1688,
		"https://shop.example/products/16880":              ProfileGeneric,
		"not a url":                                        ProfileGeneric,
		"":                                                 ProfileGeneric,
		"https://notdomeggook.example.com/item":            ProfileDomeggook,
		"https://DOMEGGOOK.COM/Upper":                      ProfileDomeggook,
	}
	for raw, want := range cases {
		require.Equal(t, want, Classify(raw), raw)
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"12,000원":          12000,
		"12,000원 ~ 15,000원": 12000,
		"₩ 9 900":           9900,
		"가격문의":              0,
		"":                  0,
		"~5,000":            0,
		"99999999999999999999": 0,
	}
	for raw, want := range cases {
		require.Equal(t, want, ParsePrice(raw), raw)
	}
}

func TestCleanDescription(t *testing.T) {
	t.Parallel()

	require.Equal(t, "A & B C", CleanDescription("<div>A &amp; B</div>\n\n<span>C</span>", 100))
	require.Equal(t, "", CleanDescription("<style>p{}</style>", 100))
	require.Equal(t, "꽃다발", CleanDescription("꽃다발 선물", 3))
}

func TestNormalizeImages(t *testing.T) {
	t.Parallel()

	got := NormalizeImages("http://shop.example/p/1", []string{
		"//cdn.example/a.jpg",
		"b.jpg",
		"/c.jpg",
		"data:image/gif;base64,R0lG",
		"javascript:void(0)",
		"https://cdn.example/a.jpg",
		"",
	}, 10)
	require.Equal(t, []string{
		"https://cdn.example/a.jpg",
		"http://shop.example/p/b.jpg",
		"http://shop.example/c.jpg",
	}, got)

	require.Len(t, NormalizeImages("https://x.example", []string{"/1.jpg", "/2.jpg", "/3.jpg"}, 2), 2)
	require.Empty(t, NormalizeImages("", []string{"relative.jpg"}, 5))
}

func TestIsDecorativeImage(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"/img/logo.png", "/a/ICON_cart.gif", "/s/sprite.png", "/x/1x1.gif", "/ui/btn_buy.png"} {
		require.True(t, isDecorativeImage(src), src)
	}
	require.False(t, isDecorativeImage("https://cdn.example/item/rose.jpg"))
}

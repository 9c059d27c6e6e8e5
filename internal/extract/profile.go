package extract

// Profile names a site family with its own selector rules.
type Profile string

// Known site profiles.
const (
	ProfileDomeggook   Profile = "domeggook"
	ProfileOwnerclan   Profile = "ownerclan"
	ProfileDomemedb    Profile = "domemedb"
	ProfileOnchannel   Profile = "onchannel"
	ProfileAlibaba1688 Profile = "alibaba1688"
	ProfileAliexpress  Profile = "aliexpress"
	ProfileGeneric     Profile = "generic"
)

// Rules lists ordered selectors per field. The first selector yielding a
// non-empty value wins; an empty result falls through to the generic rules.
type Rules struct {
	Title         []string
	Price         []string
	OriginalPrice []string
	Description   []string
	Images        []string
	Brand         []string
	SoldOut       []string
	SpecRow       string
	SpecKey       string
	SpecValue     string
}

type siteProfile struct {
	name     Profile
	hosts    []string
	keywords []string
	rules    Rules
}

// Ordered so that sub-sites are matched before their parent domain.
var siteProfiles = []siteProfile{
	{
		name:     ProfileDomemedb,
		hosts:    []string{"domeme.domeggook.com", "domemedb.domeggook.com", "domeme.com"},
		keywords: []string{"domeme"},
		rules: Rules{
			Title:         []string{"#lInfoItemTitle", ".lItemTitle", "h1.title"},
			Price:         []string{"#lItemPrice .lPrice", ".lItemPrice", ".price_box .price"},
			OriginalPrice: []string{".lConsumerPrice", ".price_box del"},
			Description:   []string{"#lInfoViewItemContents", ".lDetailContents"},
			Images:        []string{"#lThumbImg img", ".lThumbs img"},
			Brand:         []string{".lBrand", "#lInfoBrand"},
			SoldOut:       []string{".lSoldOut", ".soldout"},
			SpecRow:       "#lInfoItemInfo tr",
			SpecKey:       "th",
			SpecValue:     "td",
		},
	},
	{
		name:     ProfileDomeggook,
		hosts:    []string{"domeggook.com"},
		keywords: []string{"domeggook"},
		rules: Rules{
			Title:         []string{"#lInfoItemTitle", "h1#lItemTitle", ".lItemTitle"},
			Price:         []string{"#lItemPrice", ".lItemPrice", ".lPrice"},
			OriginalPrice: []string{"#lConsumerPrice", ".lConsumerPrice"},
			Description:   []string{"#lInfoViewItemContents", ".lDetail"},
			Images:        []string{"#lThumbImg img", "#lImgArea img"},
			Brand:         []string{".lBrand", "#lInfoBrand"},
			SoldOut:       []string{"#lSoldOut", ".soldOut"},
			SpecRow:       "#lInfoItemInfo tr",
			SpecKey:       "th",
			SpecValue:     "td",
		},
	},
	{
		name:     ProfileOwnerclan,
		hosts:    []string{"ownerclan.com"},
		keywords: []string{"ownerclan"},
		rules: Rules{
			Title:         []string{".prd_name", ".goods_name", "h2.name"},
			Price:         []string{".prd_price .sell", ".price .sell", ".prd_price"},
			OriginalPrice: []string{".prd_price .consumer", ".price del"},
			Description:   []string{"#prdDetail", ".detail_cont", ".goods_description"},
			Images:        []string{".thumb_area img", ".prd_img img", ".goods_thumb img"},
			Brand:         []string{".prd_brand", ".brand"},
			SoldOut:       []string{".soldout", ".btn_soldout"},
			SpecRow:       ".prd_info tr",
			SpecKey:       "th",
			SpecValue:     "td",
		},
	},
	{
		name:     ProfileOnchannel,
		hosts:    []string{"onch3.co.kr", "onchannel.co.kr"},
		keywords: []string{"onch3", "onchannel"},
		rules: Rules{
			Title:         []string{".prd_title", ".detail_title h2", "h1.title"},
			Price:         []string{".prd_price .supply", ".supply_price", ".price"},
			OriginalPrice: []string{".consumer_price", ".price del"},
			Description:   []string{".prd_detail", "#detail_info"},
			Images:        []string{".prd_thumb img", ".detail_img img"},
			Brand:         []string{".prd_brand"},
			SoldOut:       []string{".soldout", ".stock_out"},
			SpecRow:       ".prd_spec tr",
			SpecKey:       "th",
			SpecValue:     "td",
		},
	},
	{
		name:     ProfileAlibaba1688,
		hosts:    []string{"1688.com"},
		keywords: []string{"1688.com"},
		rules: Rules{
			Title:       []string{".title-text", ".d-title", "h1"},
			Price:       []string{".price-text", ".price .value", ".price-now"},
			Description: []string{"#desc-lazyload-container", ".desc-content"},
			Images:      []string{".detail-gallery-img", ".tab-trigger img", ".vertical-img img"},
			Brand:       []string{".brand-name"},
			SoldOut:     []string{".offer-off-shelf"},
			SpecRow:     ".offer-attr-item",
			SpecKey:     ".offer-attr-item-name",
			SpecValue:   ".offer-attr-item-value",
		},
	},
	{
		name:     ProfileAliexpress,
		hosts:    []string{"aliexpress.com", "aliexpress.us"},
		keywords: []string{"aliexpress"},
		rules: Rules{
			Title:         []string{"h1[data-pl=product-title]", ".product-title-text", "h1"},
			Price:         []string{".product-price-current", ".uniform-banner-box-price"},
			OriginalPrice: []string{".product-price-original", ".product-price-del"},
			Description:   []string{"#product-description", ".product-description"},
			Images:        []string{".images-view-item img", ".slider--img--item img"},
			Brand:         []string{".product-brand"},
			SoldOut:       []string{".product-sold-out"},
			SpecRow:       ".specification--prop--Jh28bKu",
			SpecKey:       ".specification--title--SfH3sA8",
			SpecValue:     ".specification--desc--Dxx6W0W",
		},
	},
}

// RulesFor returns the selector rules for a profile. The generic profile has
// no site rules and relies entirely on metadata fallbacks.
func RulesFor(p Profile) Rules {
	for _, sp := range siteProfiles {
		if sp.name == p {
			return sp.rules
		}
	}
	return Rules{}
}

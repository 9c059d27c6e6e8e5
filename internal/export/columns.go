// Package export maps enriched product records onto the marketplace bulk
// upload schema and writes the xlsx artifact.
package export

import (
	"strconv"
	"strings"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// Group names a block of related columns.
type Group string

// Column groups in schema order.
const (
	GroupIdentity      Group = "identity"
	GroupOption        Group = "option"
	GroupImages        Group = "images"
	GroupMarketing     Group = "marketing"
	GroupShipping      Group = "shipping"
	GroupCertification Group = "certification"
	GroupDiscounts     Group = "discounts"
	GroupReviewPoints  Group = "review_points"
	GroupPassThrough   Group = "pass_through"
)

// Format controls how a column's value is rendered.
type Format int

// Cell formats.
const (
	FormatText Format = iota
	FormatInteger
	FormatPercent
)

// Multi-value delimiters expected by the importer.
const (
	DelimComma   = ","
	DelimNewline = "\n"
)

// Column is one fixed external column.
type Column struct {
	Key       string
	Header    string
	Group     Group
	Format    Format
	Delimiter string
	value     func(sourcing.ProductRecord, Defaults) string
}

// Columns is the ordered external schema. Order and membership are fixed.
var Columns = []Column{
	// identity
	{Key: "seller_code", Header: "판매자 상품코드", Group: GroupIdentity, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.ID }},
	{Key: "category_code", Header: "카테고리코드", Group: GroupIdentity, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Category.Code }},
	{Key: "product_name", Header: "상품명", Group: GroupIdentity, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Product.Title }},
	{Key: "condition", Header: "상품상태", Group: GroupIdentity, value: func(_ sourcing.ProductRecord, d Defaults) string { return d.ProductCondition }},
	{Key: "sale_price", Header: "판매가", Group: GroupIdentity, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Pricing.SalePrice) }},
	{Key: "tax_type", Header: "부가세", Group: GroupIdentity, value: func(r sourcing.ProductRecord, d Defaults) string { return or(r.Listing.TaxType, d.TaxType) }},
	{Key: "stock", Header: "재고수량", Group: GroupIdentity, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(int64(r.Listing.Stock)) }},

	// option / variant
	{Key: "option_type", Header: "옵션형태", Group: GroupOption, value: optionType},
	{Key: "option_names", Header: "옵션명", Group: GroupOption, Delimiter: DelimNewline, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return joinOptions(r.Listing.Options, func(o sourcing.Option) string { return o.Name })
	}},
	{Key: "option_values", Header: "옵션값", Group: GroupOption, Delimiter: DelimNewline, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return joinOptions(r.Listing.Options, func(o sourcing.Option) string { return strings.Join(o.Values, DelimComma) })
	}},
	{Key: "option_prices", Header: "옵션가", Group: GroupOption, Delimiter: DelimNewline, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return joinOptions(r.Listing.Options, func(o sourcing.Option) string { return strconv.FormatInt(o.Price, 10) })
	}},
	{Key: "option_stock", Header: "옵션 재고수량", Group: GroupOption, Delimiter: DelimNewline, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return joinOptions(r.Listing.Options, func(o sourcing.Option) string { return strconv.Itoa(o.Stock) })
	}},
	{Key: "custom_option", Header: "직접입력형 옵션", Group: GroupOption},
	{Key: "addon_names", Header: "추가상품명", Group: GroupOption},
	{Key: "addon_values", Header: "추가상품값", Group: GroupOption},
	{Key: "addon_prices", Header: "추가상품가", Group: GroupOption},
	{Key: "addon_stock", Header: "추가상품 재고수량", Group: GroupOption},

	// images
	{Key: "main_image", Header: "대표이미지", Group: GroupImages, value: func(r sourcing.ProductRecord, _ Defaults) string {
		if len(r.Product.Images) == 0 {
			return ""
		}
		return r.Product.Images[0]
	}},
	{Key: "additional_images", Header: "추가이미지", Group: GroupImages, Delimiter: DelimNewline, value: func(r sourcing.ProductRecord, _ Defaults) string {
		if len(r.Product.Images) < 2 {
			return ""
		}
		return strings.Join(r.Product.Images[1:], DelimNewline)
	}},

	// marketing copy
	{Key: "detail", Header: "상세설명", Group: GroupMarketing, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Product.Description }},
	{Key: "brand", Header: "브랜드", Group: GroupMarketing, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Product.Brand }},
	{Key: "manufacturer", Header: "제조사", Group: GroupMarketing, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return or(r.Listing.Manufacturer, r.Product.Brand)
	}},
	{Key: "manufactured_on", Header: "제조일자", Group: GroupMarketing},
	{Key: "valid_until", Header: "유효일자", Group: GroupMarketing},
	{Key: "origin_code", Header: "원산지코드", Group: GroupMarketing, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Origin.Code }},
	{Key: "importer", Header: "수입사", Group: GroupMarketing},
	{Key: "multi_origin", Header: "복수원산지여부", Group: GroupMarketing, value: func(_ sourcing.ProductRecord, d Defaults) string { return d.MultiOrigin }},
	{Key: "origin_detail", Header: "원산지 직접입력", Group: GroupMarketing, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Origin.Region }},
	{Key: "minor_purchase", Header: "미성년자 구매", Group: GroupMarketing, value: func(_ sourcing.ProductRecord, d Defaults) string { return d.MinorPurchase }},
	{Key: "search_tags", Header: "검색태그", Group: GroupMarketing, Delimiter: DelimComma, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Keywords.Field() }},

	// shipping
	{Key: "shipping_template", Header: "배송비 템플릿코드", Group: GroupShipping, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.Shipping.TemplateID }},
	{Key: "shipping_method", Header: "배송방법", Group: GroupShipping, value: func(r sourcing.ProductRecord, d Defaults) string {
		return or(r.Listing.Shipping.Method, d.ShippingMethod)
	}},
	{Key: "carrier", Header: "택배사코드", Group: GroupShipping, value: func(r sourcing.ProductRecord, d Defaults) string { return or(r.Listing.Shipping.Carrier, d.Carrier) }},
	{Key: "fee_type", Header: "배송비유형", Group: GroupShipping, value: func(r sourcing.ProductRecord, d Defaults) string { return or(r.Listing.Shipping.FeeType, d.FeeType) }},
	{Key: "base_fee", Header: "기본배송비", Group: GroupShipping, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Listing.Shipping.BaseFee) }},
	{Key: "fee_payment", Header: "배송비 결제방식", Group: GroupShipping, value: func(_ sourcing.ProductRecord, d Defaults) string { return d.FeePayment }},
	{Key: "free_over", Header: "조건부무료-상품판매가합계", Group: GroupShipping, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Listing.Shipping.FreeOver) }},
	{Key: "per_quantity", Header: "수량별부과-수량", Group: GroupShipping, Format: FormatInteger},
	{Key: "return_fee", Header: "반품배송비", Group: GroupShipping, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Listing.Shipping.ReturnFee) }},
	{Key: "exchange_fee", Header: "교환배송비", Group: GroupShipping, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Listing.Shipping.ExchangeFee) }},
	{Key: "regional_fee", Header: "지역별 차등배송비 정보", Group: GroupShipping},
	{Key: "install_fee", Header: "별도설치비", Group: GroupShipping},

	// certification / notices
	{Key: "notice_template", Header: "상품정보제공고시 템플릿코드", Group: GroupCertification},
	{Key: "notice_name", Header: "상품정보제공고시 품명", Group: GroupCertification, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Product.Title }},
	{Key: "notice_model", Header: "상품정보제공고시 모델명", Group: GroupCertification, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.ModelName }},
	{Key: "notice_certification", Header: "상품정보제공고시 인증허가사항", Group: GroupCertification, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.Certification }},
	{Key: "notice_manufacturer", Header: "상품정보제공고시 제조자", Group: GroupCertification, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return or(r.Listing.Manufacturer, r.Product.Brand)
	}},
	{Key: "notice_material", Header: "상품정보제공고시 소재", Group: GroupCertification, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.Material }},
	{Key: "notice_care", Header: "상품정보제공고시 취급시 주의사항", Group: GroupCertification, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.CareInstructions }},
	{Key: "as_template", Header: "A/S 템플릿코드", Group: GroupCertification},
	{Key: "as_phone", Header: "A/S 전화번호", Group: GroupCertification, value: func(r sourcing.ProductRecord, d Defaults) string { return or(r.Listing.ASPhone, d.ASPhone) }},
	{Key: "as_guide", Header: "A/S 안내", Group: GroupCertification, value: func(r sourcing.ProductRecord, d Defaults) string { return or(r.Listing.ASGuide, d.ASGuide) }},

	// discounts / points
	{Key: "instant_discount_rate", Header: "즉시할인 값(%)", Group: GroupDiscounts, Format: FormatPercent, value: func(r sourcing.ProductRecord, _ Defaults) string { return percent(r.Listing.Discounts.InstantRate) }},
	{Key: "instant_discount_amount", Header: "즉시할인 값(원)", Group: GroupDiscounts, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return integer(r.Listing.Discounts.InstantAmount)
	}},
	{Key: "multi_buy_quantity", Header: "복수구매할인 조건 값", Group: GroupDiscounts, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return integer(int64(r.Listing.Discounts.MultiBuyQuantity))
	}},
	{Key: "multi_buy_rate", Header: "복수구매할인 값", Group: GroupDiscounts, Format: FormatPercent, value: func(r sourcing.ProductRecord, _ Defaults) string { return percent(r.Listing.Discounts.MultiBuyRate) }},
	{Key: "purchase_points", Header: "상품구매시 포인트 지급 값", Group: GroupDiscounts, Format: FormatPercent, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return percent(r.Listing.Discounts.PurchasePointPct)
	}},
	{Key: "installment_months", Header: "무이자 할부 개월", Group: GroupDiscounts, Format: FormatInteger},

	// review-incentive points
	{Key: "review_text_points", Header: "텍스트리뷰 작성시 지급 포인트", Group: GroupReviewPoints, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Listing.ReviewPoints.Text) }},
	{Key: "review_photo_points", Header: "포토/동영상 리뷰 작성시 지급 포인트", Group: GroupReviewPoints, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Listing.ReviewPoints.Photo) }},
	{Key: "review_month_text_points", Header: "한달사용 텍스트리뷰 작성시 지급 포인트", Group: GroupReviewPoints, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return integer(r.Listing.ReviewPoints.MonthText)
	}},
	{Key: "review_month_photo_points", Header: "한달사용 포토/동영상리뷰 작성시 지급 포인트", Group: GroupReviewPoints, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return integer(r.Listing.ReviewPoints.MonthPhoto)
	}},
	{Key: "review_subscriber_points", Header: "톡톡친구/스토어찜고객 리뷰 작성시 지급 포인트", Group: GroupReviewPoints, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string {
		return integer(r.Listing.ReviewPoints.Subscriber)
	}},

	// pass-through metadata
	{Key: "gift", Header: "사은품", Group: GroupPassThrough, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.Gift }},
	{Key: "barcode", Header: "판매자바코드", Group: GroupPassThrough, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Listing.Barcode }},
	{Key: "store_members_only", Header: "스토어찜회원 전용여부", Group: GroupPassThrough},
	{Key: "supplier_price", Header: "공급가", Group: GroupPassThrough, Format: FormatInteger, value: func(r sourcing.ProductRecord, _ Defaults) string { return integer(r.Pricing.SupplierPrice) }},
	{Key: "source_url", Header: "수집 URL", Group: GroupPassThrough, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.Product.SourceURL }},
	{Key: "external_key", Header: "외부 키", Group: GroupPassThrough, value: func(r sourcing.ProductRecord, _ Defaults) string { return r.ExternalKey }},
}

// Headers returns the column headers in schema order.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

// Keys returns the column keys in schema order.
func Keys() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Key
	}
	return out
}

func optionType(r sourcing.ProductRecord, _ Defaults) string {
	switch len(r.Listing.Options) {
	case 0:
		return ""
	case 1:
		return "단독형"
	default:
		return "조합형"
	}
}

func joinOptions(opts []sourcing.Option, field func(sourcing.Option) string) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = field(o)
	}
	return strings.Join(parts, DelimNewline)
}

// integer renders a positive amount as a plain integer; zero is absent.
func integer(v int64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func percent(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v) + "%"
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

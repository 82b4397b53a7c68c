package tables

import "github.com/JonMunkholm/tpcload/internal/core"

const group = "TPC-H"

func init() {
	registerRegion()
	registerNation()
	registerPart()
	registerSupplier()
	registerPartSupp()
	registerCustomer()
	registerOrders()
	registerLineItem()
}

func registerRegion() {
	core.Register(core.TableInfo{
		Key:        "region",
		Group:      group,
		Label:      "Regions",
		PrimaryKey: []string{"r_regionkey"},
	},
		core.FieldSpec{Name: "r_regionkey", Type: core.FieldInteger, Validate: core.NonNegativeInt("region key")},
		core.FieldSpec{Name: "r_name", Type: core.FieldChar, Size: 25, Validate: core.NonBlankMaxLength("region name", 25)},
		core.FieldSpec{Name: "r_comment", Type: core.FieldVarchar, Size: 152},
	)
}

func registerNation() {
	core.Register(core.TableInfo{
		Key:        "nation",
		Group:      group,
		Label:      "Nations",
		PrimaryKey: []string{"n_nationkey"},
	},
		core.FieldSpec{Name: "n_nationkey", Type: core.FieldInteger, Validate: core.NonNegativeInt("nation key")},
		core.FieldSpec{Name: "n_name", Type: core.FieldChar, Size: 25, Validate: core.NonBlankMaxLength("nation name", 25)},
		core.FieldSpec{Name: "n_regionkey", Type: core.FieldInteger, Validate: core.NonNegativeInt("region key")},
		core.FieldSpec{Name: "n_comment", Type: core.FieldVarchar, Size: 152},
	)
}

func registerPart() {
	core.Register(core.TableInfo{
		Key:        "part",
		Group:      group,
		Label:      "Parts",
		PrimaryKey: []string{"p_partkey"},
	},
		core.FieldSpec{Name: "p_partkey", Type: core.FieldInteger, Validate: core.PositiveInt("part key")},
		core.FieldSpec{Name: "p_name", Type: core.FieldVarchar, Size: 55},
		core.FieldSpec{Name: "p_mfgr", Type: core.FieldChar, Size: 25},
		core.FieldSpec{Name: "p_brand", Type: core.FieldChar, Size: 10},
		core.FieldSpec{Name: "p_type", Type: core.FieldVarchar, Size: 25},
		core.FieldSpec{Name: "p_size", Type: core.FieldInteger, Validate: core.PositiveInt("part size")},
		core.FieldSpec{Name: "p_container", Type: core.FieldChar, Size: 10},
		core.FieldSpec{Name: "p_retailprice", Type: core.FieldDecimal, Validate: core.PositiveDecimal("retail price")},
		core.FieldSpec{Name: "p_comment", Type: core.FieldVarchar, Size: 23},
	)
}

func registerSupplier() {
	core.Register(core.TableInfo{
		Key:        "supplier",
		Group:      group,
		Label:      "Suppliers",
		PrimaryKey: []string{"s_suppkey"},
	},
		core.FieldSpec{Name: "s_suppkey", Type: core.FieldInteger, Validate: core.PositiveInt("supplier key")},
		core.FieldSpec{Name: "s_name", Type: core.FieldChar, Size: 25},
		core.FieldSpec{Name: "s_address", Type: core.FieldVarchar, Size: 40},
		core.FieldSpec{Name: "s_nationkey", Type: core.FieldInteger, Validate: core.NonNegativeInt("nation key")},
		core.FieldSpec{Name: "s_phone", Type: core.FieldChar, Size: 15, Validate: core.MinLength("phone number", 10)},
		core.FieldSpec{Name: "s_acctbal", Type: core.FieldDecimal, Validate: core.Number("account balance")},
		core.FieldSpec{Name: "s_comment", Type: core.FieldVarchar, Size: 101},
	)
}

func registerPartSupp() {
	core.Register(core.TableInfo{
		Key:        "partsupp",
		Group:      group,
		Label:      "Part suppliers",
		PrimaryKey: []string{"ps_partkey", "ps_suppkey"},
	},
		core.FieldSpec{Name: "ps_partkey", Type: core.FieldInteger, Validate: core.PositiveInt("part key")},
		core.FieldSpec{Name: "ps_suppkey", Type: core.FieldInteger, Validate: core.PositiveInt("supplier key")},
		core.FieldSpec{Name: "ps_availqty", Type: core.FieldInteger, Validate: core.NonNegativeInt("available quantity")},
		core.FieldSpec{Name: "ps_supplycost", Type: core.FieldDecimal, Validate: core.PositiveDecimal("supply cost")},
		core.FieldSpec{Name: "ps_comment", Type: core.FieldVarchar, Size: 199},
	)
}

func registerCustomer() {
	core.Register(core.TableInfo{
		Key:        "customer",
		Group:      group,
		Label:      "Customers",
		PrimaryKey: []string{"c_custkey"},
	},
		core.FieldSpec{Name: "c_custkey", Type: core.FieldInteger, Validate: core.PositiveInt("customer key")},
		core.FieldSpec{Name: "c_name", Type: core.FieldVarchar, Size: 25},
		core.FieldSpec{Name: "c_address", Type: core.FieldVarchar, Size: 40},
		core.FieldSpec{Name: "c_nationkey", Type: core.FieldInteger, Validate: core.NonNegativeInt("nation key")},
		core.FieldSpec{Name: "c_phone", Type: core.FieldChar, Size: 15, Validate: core.MinLength("phone number", 10)},
		core.FieldSpec{Name: "c_acctbal", Type: core.FieldDecimal, Validate: core.Number("account balance")},
		core.FieldSpec{Name: "c_mktsegment", Type: core.FieldChar, Size: 10},
		core.FieldSpec{Name: "c_comment", Type: core.FieldVarchar, Size: 117},
	)
}

func registerOrders() {
	core.Register(core.TableInfo{
		Key:        "orders",
		Group:      group,
		Label:      "Orders",
		PrimaryKey: []string{"o_orderkey"},
	},
		core.FieldSpec{Name: "o_orderkey", Type: core.FieldBigInt, Validate: core.PositiveInt("order key")},
		core.FieldSpec{Name: "o_custkey", Type: core.FieldInteger, Validate: core.PositiveInt("customer key")},
		core.FieldSpec{Name: "o_orderstatus", Type: core.FieldChar, Size: 1},
		core.FieldSpec{Name: "o_totalprice", Type: core.FieldDecimal, Validate: core.PositiveDecimal("total price")},
		core.FieldSpec{Name: "o_orderdate", Type: core.FieldDate, Validate: core.ISODate("order date")},
		core.FieldSpec{Name: "o_orderpriority", Type: core.FieldChar, Size: 15},
		core.FieldSpec{Name: "o_clerk", Type: core.FieldChar, Size: 15},
		core.FieldSpec{Name: "o_shippriority", Type: core.FieldInteger},
		core.FieldSpec{Name: "o_comment", Type: core.FieldVarchar, Size: 79},
	)
}

func registerLineItem() {
	core.Register(core.TableInfo{
		Key:        "lineitem",
		Group:      group,
		Label:      "Line items",
		PrimaryKey: []string{"l_orderkey", "l_linenumber"},
	},
		core.FieldSpec{Name: "l_orderkey", Type: core.FieldBigInt, Validate: core.PositiveInt("order key")},
		core.FieldSpec{Name: "l_partkey", Type: core.FieldInteger, Validate: core.PositiveInt("part key")},
		core.FieldSpec{Name: "l_suppkey", Type: core.FieldInteger, Validate: core.PositiveInt("supplier key")},
		core.FieldSpec{Name: "l_linenumber", Type: core.FieldInteger, Validate: core.PositiveInt("line number")},
		core.FieldSpec{Name: "l_quantity", Type: core.FieldDecimal, Validate: core.PositiveDecimal("quantity")},
		core.FieldSpec{Name: "l_extendedprice", Type: core.FieldDecimal, Validate: core.PositiveDecimal("extended price")},
		core.FieldSpec{Name: "l_discount", Type: core.FieldDecimal, Validate: core.Ratio("discount")},
		core.FieldSpec{Name: "l_tax", Type: core.FieldDecimal, Validate: core.NonNegativeDecimal("tax")},
		core.FieldSpec{Name: "l_returnflag", Type: core.FieldChar, Size: 1},
		core.FieldSpec{Name: "l_linestatus", Type: core.FieldChar, Size: 1},
		core.FieldSpec{Name: "l_shipdate", Type: core.FieldDate, Validate: core.ISODate("ship date")},
		core.FieldSpec{Name: "l_commitdate", Type: core.FieldDate, Validate: core.ISODate("commit date")},
		core.FieldSpec{Name: "l_receiptdate", Type: core.FieldDate, Validate: core.ISODate("receipt date")},
		core.FieldSpec{Name: "l_shipinstruct", Type: core.FieldChar, Size: 25},
		core.FieldSpec{Name: "l_shipmode", Type: core.FieldChar, Size: 10},
		core.FieldSpec{Name: "l_comment", Type: core.FieldVarchar, Size: 44},
	)
}

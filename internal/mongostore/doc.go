// Package mongostore implements the record store over a MongoDB collection
// of sales order documents.
//
// Documents use the collection's original field names:
//
//	_id                 primary key "{numero_pv}_{filial_codigo}"
//	numero_pv           order number (int)
//	filial_codigo       branch code
//	filial_nome         branch name
//	parceiro            partner
//	emissao             issue date (date)
//	vendedor            salesperson
//	condicao_pagamento  payment terms
//	valor_total_pedido  order total (Decimal128; double and int accepted on read)
//	itens               [{cod_produto, descricao, quantidade, unitario, total_item}]
//	data_carga          load timestamp (date)
//
// Store order is _id ascending. Dates are stored with millisecond precision.
//
// Case folding in Aggregate uses $toLower, which is only well defined for
// ASCII. Branch codes outside ASCII may group differently than in memory;
// the SQLite store does not have this limitation.
//
// The store does not implement dedup.Mover: multi-document transactions need
// a replica set, so migrations use the two-step write and rely on re-runs
// to repair an interrupted record.
package mongostore
